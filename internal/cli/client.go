package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crm/pkg/types"
)

func newClientCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Inspect and manage clients",
	}
	cmd.AddCommand(newClientListCmd(a), newClientGetCmd(a), newClientDeleteCmd(a))
	return cmd
}

func newClientListCmd(a *app) *cobra.Command {
	var filter types.ClientFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients, most recently updated first",
		Long: `List one page of clients.

Example:
  crm client list
  crm client list --state active --limit 10
  crm client list --search acme --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			clients, total, err := store.Clients().List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, map[string]any{
					"items": clients,
					"total": total,
					"skip":  filter.Skip,
					"limit": filter.Limit,
				})
			}
			if len(clients) == 0 {
				fmt.Fprintln(out, "No clients found.")
				return nil
			}
			rows := make([][]string, 0, len(clients))
			for _, c := range clients {
				rows = append(rows, []string{
					c.ClientID, truncate(c.Name, 40), c.State, deref(c.Email), c.UpdatedAt.Format("2006-01-02"),
				})
			}
			printTable(out, []string{"ID", "NAME", "STATE", "EMAIL", "UPDATED"}, rows)
			fmt.Fprintf(out, "Showing %d of %d client(s)\n", len(clients), total)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.State, "state", "", "filter by state (prospect, active, inactive, blocked)")
	cmd.Flags().StringVar(&filter.Segment, "segment", "", "filter by segment")
	cmd.Flags().StringVar(&filter.Search, "search", "", "search name, legal name and email")
	cmd.Flags().IntVar(&filter.Skip, "skip", 0, "number of clients to skip")
	cmd.Flags().IntVar(&filter.Limit, "limit", types.DefaultListLimit, "page size (1-100)")
	return cmd
}

func newClientGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a client with its contacts, open opportunities and recent activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			c, err := store.Clients().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("client %q: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, c)
			}
			printTable(out, []string{"FIELD", "VALUE"}, [][]string{
				{"id", c.ClientID},
				{"name", c.Name},
				{"state", c.State},
				{"type", c.ClientType},
				{"email", deref(c.Email)},
				{"tax id", deref(c.TaxID)},
				{"segment", deref(c.Segment)},
				{"credit available", c.CreditAvailable.StringFixed(2)},
				{"total invoiced", c.TotalInvoiced.StringFixed(2)},
				{"contacts", fmt.Sprint(len(c.Contacts))},
				{"open opportunities", fmt.Sprint(len(c.Opportunities))},
				{"recent activities", fmt.Sprint(len(c.RecentActivities))},
				{"updated", c.UpdatedAt.Format("2006-01-02 15:04:05")},
			})
			return nil
		},
	}
}

func newClientDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client and its contacts, activities and opportunities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			deleted, err := store.Clients().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("client %q: %w", args[0], types.ErrNotFound)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
