// Package sqlite is the public entry point to the SQLite Store backend.
// The tables, schema and export code stay in internal/sqlite.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/crm/internal/sqlite"
	"github.com/mesh-intelligence/crm/pkg/types"
)

// Option configures a backend created by NewBackend.
type Option = sqlite.Option

// WithLogger routes the store lifecycle logs to l.
func WithLogger(l *slog.Logger) Option {
	return sqlite.WithLogger(l)
}

// NewBackend returns an unattached SQLite Store. Call Attach before use.
//
//	store := sqlite.NewBackend(sqlite.WithLogger(logger))
//	if err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/crm",
//	}); err != nil {
//	    return err
//	}
//	defer store.Detach()
func NewBackend(opts ...Option) types.Store {
	return sqlite.NewBackend(opts...)
}
