// This file implements the clients table accessor for the SQLite backend.
// Reads hydrate the client's contacts, open opportunities and most recent
// activities; writes that touch more than one row run in a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/crm/pkg/types"
)

var _ types.ClientTable = (*clientsTable)(nil)

const clientColumns = "client_id, name, legal_name, client_type, email, tax_id, state, segment, " +
	"industry, website, notes, credit_available, total_invoiced, invoice_count, average_sale, " +
	"on_time_payment_rate, days_since_last_contact, created_at, updated_at"

// clientsTable implements types.ClientTable.
type clientsTable struct {
	backend *Backend
}

// Create inserts the client and its initial contacts atomically. On any
// failure nothing is stored.
func (ct *clientsTable) Create(ctx context.Context, in types.ClientCreate) (*types.Client, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	now := time.Now().UTC()
	c := &types.Client{
		ClientID:         newID(prefixClient),
		Name:             in.Name,
		LegalName:        in.LegalName,
		ClientType:       in.ClientType,
		Email:            in.Email,
		TaxID:            in.TaxID,
		State:            in.State,
		Segment:          in.Segment,
		Industry:         in.Industry,
		Website:          in.Website,
		Notes:            in.Notes,
		CreditAvailable:  in.CreditAvailable,
		TotalInvoiced:    decimal.Zero,
		AverageSale:      decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
		Contacts:         []*types.Contact{},
		Opportunities:    []*types.Opportunity{},
		RecentActivities: []*types.Activity{},
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO clients ("+clientColumns+") VALUES ("+placeholders(19)+")",
		c.ClientID, c.Name, nullString(c.LegalName), c.ClientType, nullString(c.Email),
		nullString(c.TaxID), c.State, nullString(c.Segment), nullString(c.Industry),
		nullString(c.Website), nullString(c.Notes), decimalArg(c.CreditAvailable),
		0.0, 0, 0.0, nil, nil, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting client: %w", translateErr(err))
	}

	for _, ci := range in.Contacts {
		contact, err := insertContact(ctx, tx, c.ClientID, ci, now)
		if err != nil {
			return nil, err
		}
		c.Contacts = append(c.Contacts, contact)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing client: %w", translateErr(err))
	}
	return c, nil
}

// Get returns a fully hydrated client.
func (ct *clientsTable) Get(ctx context.Context, id string) (*types.Client, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return getClient(ctx, db, id, types.RecentActivitiesOnGet)
}

// Exists reports whether the client is stored.
func (ct *clientsTable) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM clients WHERE client_id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking client %s: %w", id, err)
	}
	return true, nil
}

// List returns one page of clients, newest update first, and the number of
// clients matching the filter across all pages.
func (ct *clientsTable) List(ctx context.Context, filter types.ClientFilter) ([]*types.Client, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer cancel()

	where, args := clientFilterClause(filter)

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting clients: %w", err)
	}

	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Skip)
	rows, err := db.QueryContext(ctx,
		"SELECT "+clientColumns+" FROM clients"+where+
			" ORDER BY updated_at DESC, client_id ASC LIMIT ? OFFSET ?",
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing clients: %w", err)
	}
	clients := []*types.Client{}
	for rows.Next() {
		c, err := hydrateClient(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("hydrating client: %w", err)
		}
		clients = append(clients, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating clients: %w", err)
	}

	for _, c := range clients {
		if err := hydrateChildren(ctx, db, c, types.RecentActivitiesOnList); err != nil {
			return nil, 0, err
		}
	}
	return clients, total, nil
}

// clientFilterClause builds the WHERE clause shared by the count and page
// queries.
func clientFilterClause(f types.ClientFilter) (string, []any) {
	var conditions []string
	var args []any
	if f.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, f.State)
	}
	if f.Segment != "" {
		conditions = append(conditions, "segment = ?")
		args = append(args, f.Segment)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		conditions = append(conditions,
			`(name LIKE ? ESCAPE '\' OR legal_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Update writes the set fields and always refreshes updated_at.
func (ct *clientsTable) Update(ctx context.Context, id string, in types.ClientUpdate) (*types.Client, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var sets []string
	var args []any
	setString := func(col string, o types.Optional[string]) {
		if o.Set {
			sets = append(sets, col+" = ?")
			args = append(args, nullString(o.Ptr()))
		}
	}
	setString("name", in.Name)
	setString("legal_name", in.LegalName)
	setString("client_type", in.ClientType)
	setString("email", in.Email)
	setString("tax_id", in.TaxID)
	setString("state", in.State)
	setString("segment", in.Segment)
	setString("industry", in.Industry)
	setString("website", in.Website)
	setString("notes", in.Notes)
	if in.CreditAvailable.Set {
		sets = append(sets, "credit_available = ?")
		args = append(args, decimalArg(in.CreditAvailable.Value))
	}

	if in.Empty() {
		ct.backend.logger.Debug("client update carries no fields", "client_id", id)
	}
	err = ct.touch(ctx, db, id, sets, args)
	if err != nil {
		return nil, err
	}
	return getClient(ctx, db, id, types.RecentActivitiesOnGet)
}

// Delete removes the client; contacts, activities and opportunities go with
// it through ON DELETE CASCADE.
func (ct *clientsTable) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, types.ErrInvalidID
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	res, err := db.ExecContext(ctx, "DELETE FROM clients WHERE client_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting client %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking delete result: %w", err)
	}
	return n > 0, nil
}

// FindByEmail prefers an exact case-insensitive match and falls back to the
// most recently updated client whose email contains the value.
func (ct *clientsTable) FindByEmail(ctx context.Context, email string) (*types.Client, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, types.ErrInvalidValue
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var id string
	err = db.QueryRowContext(ctx,
		"SELECT client_id FROM clients WHERE lower(email) = lower(?) ORDER BY updated_at DESC, client_id LIMIT 1", email,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = db.QueryRowContext(ctx,
			`SELECT client_id FROM clients WHERE email LIKE ? ESCAPE '\' ORDER BY updated_at DESC, client_id LIMIT 1`,
			"%"+escapeLike(email)+"%",
		).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding client by email: %w", err)
	}
	return getClient(ctx, db, id, types.RecentActivitiesOnGet)
}

// RecordMetrics replaces the billing-derived fields and recomputes the
// average sale.
func (ct *clientsTable) RecordMetrics(ctx context.Context, id string, m types.ClientMetrics) (*types.Client, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	sets := []string{
		"total_invoiced = ?",
		"invoice_count = ?",
		"average_sale = ?",
		"on_time_payment_rate = ?",
		"days_since_last_contact = ?",
	}
	args := []any{
		decimalArg(m.TotalInvoiced),
		m.InvoiceCount,
		decimalArg(m.AverageSale()),
		nullFloat(m.OnTimePaymentRate),
		nullInt(m.DaysSinceLastContact),
	}
	if err := ct.touch(ctx, db, id, sets, args); err != nil {
		return nil, err
	}
	return getClient(ctx, db, id, types.RecentActivitiesOnGet)
}

// Stats derives the per-client statistics view.
func (ct *clientsTable) Stats(ctx context.Context, id string) (*types.ClientStats, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	c, err := hydrateClient(db.QueryRowContext(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE client_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting client %s: %w", id, err)
	}

	var openValue decimal.Decimal
	err = db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(estimated_value), 0.0) FROM opportunities WHERE client_id = ? AND "+openStateClause,
		id,
	).Scan(&openValue)
	if err != nil {
		return nil, fmt.Errorf("summing open opportunities: %w", err)
	}

	return &types.ClientStats{
		ClientID:              c.ClientID,
		TotalInvoiced:         c.TotalInvoiced,
		InvoiceCount:          c.InvoiceCount,
		AverageSale:           c.AverageSale,
		OnTimePaymentRate:     c.OnTimePaymentRate,
		OpenOpportunityValue:  openValue,
		DaysSinceFirstContact: int(time.Since(c.CreatedAt).Hours() / 24),
		DaysSinceLastContact:  c.DaysSinceLastContact,
		Health:                types.ClientHealth(c.OnTimePaymentRate, c.DaysSinceLastContact),
	}, nil
}

// touch applies sets to the client and bumps updated_at past its stored
// value in one immediate transaction. Returns ErrNotFound when the client is
// missing.
func (ct *clientsTable) touch(ctx context.Context, db *sql.DB, id string, sets []string, args []any) error {
	return withImmediateTx(ctx, db, func(q queryer) error {
		var prevText string
		err := q.QueryRowContext(ctx, "SELECT updated_at FROM clients WHERE client_id = ?", id).Scan(&prevText)
		if errors.Is(err, sql.ErrNoRows) {
			return types.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reading client %s: %w", id, err)
		}
		prev, err := parseTime(prevText)
		if err != nil {
			return err
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, formatTime(nowAfter(prev)), id)
		_, err = q.ExecContext(ctx,
			"UPDATE clients SET "+strings.Join(sets, ", ")+" WHERE client_id = ?", args...)
		if err != nil {
			return fmt.Errorf("updating client %s: %w", id, translateErr(err))
		}
		return nil
	})
}

// getClient reads the client row and its children.
func getClient(ctx context.Context, q queryer, id string, recent int) (*types.Client, error) {
	c, err := hydrateClient(q.QueryRowContext(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE client_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting client %s: %w", id, err)
	}
	if err := hydrateChildren(ctx, q, c, recent); err != nil {
		return nil, err
	}
	return c, nil
}

// hydrateChildren attaches contacts, open opportunities and the recent
// activities to c.
func hydrateChildren(ctx context.Context, q queryer, c *types.Client, recent int) error {
	var err error
	if c.Contacts, err = listContacts(ctx, q, c.ClientID); err != nil {
		return err
	}
	if c.Opportunities, err = listOpenOpportunities(ctx, q, c.ClientID); err != nil {
		return err
	}
	if c.RecentActivities, err = listActivities(ctx, q, c.ClientID, recent); err != nil {
		return err
	}
	return nil
}

func hydrateClient(row rowScanner) (*types.Client, error) {
	var c types.Client
	var legalName, email, taxID, segment, industry, website, notes sql.NullString
	var rate sql.NullFloat64
	var days sql.NullInt64
	var createdAt, updatedAt string
	err := row.Scan(
		&c.ClientID, &c.Name, &legalName, &c.ClientType, &email, &taxID, &c.State,
		&segment, &industry, &website, &notes, &c.CreditAvailable, &c.TotalInvoiced,
		&c.InvoiceCount, &c.AverageSale, &rate, &days, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LegalName = stringPtr(legalName)
	c.Email = stringPtr(email)
	c.TaxID = stringPtr(taxID)
	c.Segment = stringPtr(segment)
	c.Industry = stringPtr(industry)
	c.Website = stringPtr(website)
	c.Notes = stringPtr(notes)
	c.OnTimePaymentRate = floatPtr(rate)
	c.DaysSinceLastContact = intPtr(days)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
