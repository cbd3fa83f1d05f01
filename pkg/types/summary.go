package types

import "github.com/shopspring/decimal"

// Summary holds the dataset-wide CRM statistics.
//
// AvgDaysSinceLastContact averages the recorded days-since-last-contact of
// clients. It is not a days-to-pay metric; no payment delay is stored.
type Summary struct {
	TotalClients             int             `json:"total_clients"`
	ActiveClients            int             `json:"active_clients"`
	NewClientsThisMonth      int             `json:"new_clients_this_month"`
	TotalInvoiced            decimal.Decimal `json:"total_invoiced"`
	OpenOpportunityValue     decimal.Decimal `json:"open_opportunity_value"`
	AvgDaysSinceLastContact  float64         `json:"avg_days_since_last_contact"`
	DelinquentClients        int             `json:"delinquent_clients"`
	PendingActivities        int             `json:"pending_activities"`
	OpportunitiesClosingSoon int             `json:"opportunities_closing_soon"`
}
