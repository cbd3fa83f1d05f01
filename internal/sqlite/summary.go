// This file implements the dataset-wide aggregate statistics.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/crm/pkg/types"
)

// Summary computes every statistic over one read transaction so the
// numbers describe a single snapshot.
func (b *Backend) Summary(ctx context.Context) (*types.Summary, error) {
	db, ctx, cancel, err := b.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning summary transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	s := &types.Summary{
		TotalInvoiced:        decimal.Zero,
		OpenOpportunityValue: decimal.Zero,
	}

	err = tx.QueryRowContext(ctx, `SELECT
    COUNT(*),
    COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(total_invoiced), 0.0),
    COALESCE(AVG(days_since_last_contact), 0.0),
    COALESCE(SUM(CASE WHEN state = ? AND on_time_payment_rate IS NOT NULL
        AND on_time_payment_rate < ? THEN 1 ELSE 0 END), 0)
FROM clients`,
		types.ClientStateActive,
		formatTime(monthStart), formatTime(nextMonth),
		types.ClientStateActive, types.DelinquencyThreshold,
	).Scan(
		&s.TotalClients, &s.ActiveClients, &s.NewClientsThisMonth,
		&s.TotalInvoiced, &s.AvgDaysSinceLastContact, &s.DelinquentClients,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating clients: %w", err)
	}

	err = tx.QueryRowContext(ctx, `SELECT
    COALESCE(SUM(estimated_value), 0.0),
    COALESCE(SUM(CASE WHEN expected_close_date >= ? AND expected_close_date <= ? THEN 1 ELSE 0 END), 0)
FROM opportunities WHERE `+openStateClause,
		formatTime(now), formatTime(now.Add(types.ClosingSoonWindow)),
	).Scan(&s.OpenOpportunityValue, &s.OpportunitiesClosingSoon)
	if err != nil {
		return nil, fmt.Errorf("aggregating opportunities: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activities WHERE completed = 0",
	).Scan(&s.PendingActivities)
	if err != nil {
		return nil, fmt.Errorf("counting pending activities: %w", err)
	}

	return s, nil
}
