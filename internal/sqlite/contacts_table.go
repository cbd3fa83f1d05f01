// This file implements the contacts table accessor for the SQLite backend.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/crm/pkg/types"
)

var _ types.ContactTable = (*contactsTable)(nil)

const contactColumns = "contact_id, client_id, kind, value, principal, verified, created_at"

// contactsTable implements types.ContactTable.
type contactsTable struct {
	backend *Backend
}

// Create adds a contact to an existing client.
// Returns ErrNotFound when the client does not exist.
func (ct *contactsTable) Create(ctx context.Context, clientID string, in types.ContactInput) (*types.Contact, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	contact, err := insertContact(ctx, db, clientID, in, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// List returns all contacts of a client, principal first then oldest first.
func (ct *contactsTable) List(ctx context.Context, clientID string) ([]*types.Contact, error) {
	db, ctx, cancel, err := ct.backend.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return listContacts(ctx, db, clientID)
}

// insertContact writes one contact row using q, which may be a transaction.
func insertContact(ctx context.Context, q queryer, clientID string, in types.ContactInput, now time.Time) (*types.Contact, error) {
	c := &types.Contact{
		ContactID: newID(prefixContact),
		ClientID:  clientID,
		Kind:      in.Kind,
		Value:     strings.TrimSpace(in.Value),
		Principal: in.Principal,
		Verified:  in.Verified,
		CreatedAt: now,
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO contacts ("+contactColumns+") VALUES ("+placeholders(7)+")",
		c.ContactID, c.ClientID, c.Kind, c.Value,
		boolArg(c.Principal), boolArg(c.Verified), formatTime(c.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting contact: %w", translateErr(err))
	}
	return c, nil
}

func listContacts(ctx context.Context, q queryer, clientID string) ([]*types.Contact, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE client_id = ? ORDER BY principal DESC, created_at ASC",
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*types.Contact{}
	for rows.Next() {
		c, err := hydrateContact(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contacts: %w", err)
	}
	return contacts, nil
}

func hydrateContact(row rowScanner) (*types.Contact, error) {
	var c types.Contact
	var principal, verified int
	var createdAt string
	if err := row.Scan(&c.ContactID, &c.ClientID, &c.Kind, &c.Value, &principal, &verified, &createdAt); err != nil {
		return nil, err
	}
	c.Principal = principal != 0
	c.Verified = verified != 0
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}
