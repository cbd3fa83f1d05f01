// This file implements the opportunities table accessor for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/crm/pkg/types"
)

var _ types.OpportunityTable = (*opportunitiesTable)(nil)

const opportunityColumns = "opportunity_id, client_id, title, description, state, estimated_value, " +
	"close_probability, expected_close_date, products, notes, created_at, updated_at"

// openStateClause restricts a query to opportunities that are neither won nor lost.
const openStateClause = "state NOT IN ('won', 'lost')"

// opportunitiesTable implements types.OpportunityTable.
type opportunitiesTable struct {
	backend *Backend
}

// Create opens an opportunity for an existing client.
func (ot *opportunitiesTable) Create(ctx context.Context, clientID string, in types.OpportunityInput) (*types.Opportunity, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	db, ctx, cancel, err := ot.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	now := time.Now().UTC()
	o := &types.Opportunity{
		OpportunityID:     newID(prefixOpportunity),
		ClientID:          clientID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		State:             in.State,
		EstimatedValue:    in.EstimatedValue,
		CloseProbability:  in.CloseProbability,
		ExpectedCloseDate: in.ExpectedCloseDate.UTC(),
		Products:          in.Products,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if o.Products == nil {
		o.Products = []string{}
	}
	products, err := encodeProducts(o.Products)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO opportunities ("+opportunityColumns+") VALUES ("+placeholders(12)+")",
		o.OpportunityID, o.ClientID, o.Title, nullString(o.Description), o.State,
		decimalArg(o.EstimatedValue), o.CloseProbability, formatTime(o.ExpectedCloseDate),
		products, nullString(o.Notes), formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting opportunity: %w", translateErr(err))
	}
	return o, nil
}

// ListOpen returns the open opportunities of a client, soonest close first.
func (ot *opportunitiesTable) ListOpen(ctx context.Context, clientID string) ([]*types.Opportunity, error) {
	db, ctx, cancel, err := ot.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return listOpenOpportunities(ctx, db, clientID)
}

func listOpenOpportunities(ctx context.Context, q queryer, clientID string) ([]*types.Opportunity, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+opportunityColumns+" FROM opportunities WHERE client_id = ? AND "+openStateClause+
			" ORDER BY expected_close_date ASC, created_at ASC",
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}
	defer rows.Close()

	opportunities := []*types.Opportunity{}
	for rows.Next() {
		o, err := hydrateOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating opportunity: %w", err)
		}
		opportunities = append(opportunities, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opportunities: %w", err)
	}
	return opportunities, nil
}

func hydrateOpportunity(row rowScanner) (*types.Opportunity, error) {
	var o types.Opportunity
	var description, products, notes sql.NullString
	var expectedClose, createdAt, updatedAt string
	if err := row.Scan(&o.OpportunityID, &o.ClientID, &o.Title, &description, &o.State,
		&o.EstimatedValue, &o.CloseProbability, &expectedClose, &products, &notes,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	o.Description = stringPtr(description)
	o.Notes = stringPtr(notes)

	o.Products = []string{}
	if products.Valid && products.String != "" {
		if err := json.Unmarshal([]byte(products.String), &o.Products); err != nil {
			return nil, fmt.Errorf("decoding products: %w", err)
		}
	}

	var err error
	if o.ExpectedCloseDate, err = parseTime(expectedClose); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// encodeProducts stores the product list as a JSON array, NULL when empty.
func encodeProducts(products []string) (sql.NullString, error) {
	if len(products) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding products: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
