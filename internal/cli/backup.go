package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crm/pkg/types"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table as JSONL files into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			counts, err := store.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCounts(cmd, a, "Exported", counts)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load JSONL files from dir, skipping rows that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			counts, err := store.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCounts(cmd, a, "Imported", counts)
		},
	}
}

func printCounts(cmd *cobra.Command, a *app, verb string, counts map[string]int) error {
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, counts)
	}
	for _, table := range types.StandardTableNames {
		fmt.Fprintf(out, "%s %d %s\n", verb, counts[table], table)
	}
	return nil
}
