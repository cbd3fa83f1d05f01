package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the dataset-wide CRM statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			s, err := store.Summary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, s)
			}
			printTable(out, []string{"METRIC", "VALUE"}, [][]string{
				{"total clients", fmt.Sprint(s.TotalClients)},
				{"active clients", fmt.Sprint(s.ActiveClients)},
				{"new this month", fmt.Sprint(s.NewClientsThisMonth)},
				{"total invoiced", s.TotalInvoiced.StringFixed(2)},
				{"open opportunity value", s.OpenOpportunityValue.StringFixed(2)},
				{"avg days since last contact", fmt.Sprintf("%.1f", s.AvgDaysSinceLastContact)},
				{"delinquent clients", fmt.Sprint(s.DelinquentClients)},
				{"pending activities", fmt.Sprint(s.PendingActivities)},
				{"opportunities closing soon", fmt.Sprint(s.OpportunitiesClosingSoon)},
			})
			return nil
		},
	}
}
