package types

import "context"

// Table names as created by the schema.
const (
	TableClients       = "clients"
	TableContacts      = "contacts"
	TableActivities    = "activities"
	TableOpportunities = "opportunities"
)

// StandardTableNames lists the tables in foreign-key dependency order.
var StandardTableNames = []string{
	TableClients,
	TableContacts,
	TableActivities,
	TableOpportunities,
}

// ClientTable provides CRUD and query operations over clients.
type ClientTable interface {
	// Create inserts a client and its initial contacts in one transaction
	// and returns the stored client. Returns ErrDuplicateKey when the email
	// or tax ID is already taken.
	Create(ctx context.Context, in ClientCreate) (*Client, error)

	// Get returns the client with contacts, open opportunities and the five
	// most recent activities. Returns ErrNotFound if no client matches.
	Get(ctx context.Context, id string) (*Client, error)

	// Exists reports whether a client with the given ID is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns one page of clients ordered by last update (newest
	// first) and the total number of clients matching the filter.
	List(ctx context.Context, filter ClientFilter) ([]*Client, int, error)

	// Update applies the fields present in the payload, refreshes
	// UpdatedAt and returns the re-read client.
	Update(ctx context.Context, id string, in ClientUpdate) (*Client, error)

	// Delete removes the client and, by cascade, its children.
	// Reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// FindByEmail returns the client whose email matches exactly
	// (case-insensitive), falling back to the first substring match.
	FindByEmail(ctx context.Context, email string) (*Client, error)

	// RecordMetrics stores the billing-derived fields of a client.
	RecordMetrics(ctx context.Context, id string, m ClientMetrics) (*Client, error)

	// Stats returns the per-client statistics view.
	Stats(ctx context.Context, id string) (*ClientStats, error)
}

// ContactTable manages the contacts of a client.
type ContactTable interface {
	Create(ctx context.Context, clientID string, in ContactInput) (*Contact, error)
	List(ctx context.Context, clientID string) ([]*Contact, error)
}

// ActivityTable manages the activities of a client.
type ActivityTable interface {
	Create(ctx context.Context, clientID string, in ActivityInput) (*Activity, error)
	// List returns at most limit activities, newest first.
	List(ctx context.Context, clientID string, limit int) ([]*Activity, error)
}

// OpportunityTable manages the opportunities of a client.
type OpportunityTable interface {
	Create(ctx context.Context, clientID string, in OpportunityInput) (*Opportunity, error)
	// ListOpen returns the opportunities that are not won or lost.
	ListOpen(ctx context.Context, clientID string) ([]*Opportunity, error)
}
