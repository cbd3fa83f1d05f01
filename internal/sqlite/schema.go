package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL for all tables. Every statement is idempotent.
const (
	createClients = `CREATE TABLE IF NOT EXISTS clients (
    client_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    legal_name TEXT,
    client_type TEXT NOT NULL DEFAULT 'company',
    email TEXT UNIQUE,
    tax_id TEXT UNIQUE,
    state TEXT NOT NULL DEFAULT 'prospect'
        CHECK (state IN ('prospect', 'active', 'inactive', 'blocked')),
    segment TEXT,
    industry TEXT,
    website TEXT,
    notes TEXT,
    credit_available REAL NOT NULL DEFAULT 0,
    total_invoiced REAL NOT NULL DEFAULT 0,
    invoice_count INTEGER NOT NULL DEFAULT 0,
    average_sale REAL NOT NULL DEFAULT 0,
    on_time_payment_rate REAL,
    days_since_last_contact INTEGER,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createContacts = `CREATE TABLE IF NOT EXISTS contacts (
    contact_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('email', 'phone', 'mobile', 'address')),
    value TEXT NOT NULL,
    principal INTEGER NOT NULL DEFAULT 0,
    verified INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    FOREIGN KEY (client_id) REFERENCES clients(client_id) ON DELETE CASCADE
);`

	createActivities = `CREATE TABLE IF NOT EXISTS activities (
    activity_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    kind TEXT NOT NULL
        CHECK (kind IN ('call', 'email', 'meeting', 'task', 'note', 'sale')),
    title TEXT NOT NULL,
    description TEXT,
    occurred_at TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    responsible TEXT,
    notes TEXT,
    FOREIGN KEY (client_id) REFERENCES clients(client_id) ON DELETE CASCADE
);`

	createOpportunities = `CREATE TABLE IF NOT EXISTS opportunities (
    opportunity_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    state TEXT NOT NULL DEFAULT 'initial'
        CHECK (state IN ('initial', 'contacted', 'proposal', 'negotiation', 'won', 'lost')),
    estimated_value REAL NOT NULL,
    close_probability REAL NOT NULL DEFAULT 0
        CHECK (close_probability BETWEEN 0 AND 100),
    expected_close_date TEXT NOT NULL,
    products TEXT,
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (client_id) REFERENCES clients(client_id) ON DELETE CASCADE
);`
)

// Index DDL for the common filters.
const (
	idxClientsEmail       = `CREATE INDEX IF NOT EXISTS idx_clients_email ON clients(email);`
	idxClientsState       = `CREATE INDEX IF NOT EXISTS idx_clients_state ON clients(state);`
	idxActivitiesOccurred = `CREATE INDEX IF NOT EXISTS idx_activities_occurred_at ON activities(occurred_at);`
	idxOpportunitiesState = `CREATE INDEX IF NOT EXISTS idx_opportunities_state ON opportunities(state);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createClients,
	createContacts,
	createActivities,
	createOpportunities,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxClientsEmail,
	idxClientsState,
	idxActivitiesOccurred,
	idxOpportunitiesState,
}

// ensureSchema creates missing tables and indexes in one transaction.
// Running it against an initialized database changes nothing.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}
