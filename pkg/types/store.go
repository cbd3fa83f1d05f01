package types

import (
	"context"
	"errors"
)

// Store defines backend-agnostic access to the CRM tables.
// Callers attach to a backend, use the table accessors, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist and ensures the schema.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, table operations return ErrStoreDetached.
	Detach() error

	Clients() ClientTable
	Contacts() ContactTable
	Activities() ActivityTable
	Opportunities() OpportunityTable

	// Summary computes the dataset-wide aggregate statistics.
	Summary(ctx context.Context) (*Summary, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
