package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crm/pkg/crm"
)

const modulePath = "github.com/mesh-intelligence/crm"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the crm version",
		// version needs no config or store.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "crm v%s\nmodule: %s\n", crm.Version, modulePath)
			return nil
		},
	}
}
