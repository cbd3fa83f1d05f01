// Package sqlite implements the SQLite storage backend for the CRM.
// Every operation is a parameterized statement over a bounded connection
// pool; foreign keys cascade child rows when a client is deleted.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/crm/pkg/types"
)

// DatabaseFile is the name of the SQLite file inside DataDir.
const DatabaseFile = "crm.db"

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// Backend implements the Store interface using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *slog.Logger

	// acquireTimeout bounds every operation, including the wait for a
	// pooled connection.
	acquireTimeout time.Duration

	clients       *clientsTable
	contacts      *contactsTable
	activities    *activitiesTable
	opportunities *opportunitiesTable
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	b.clients = &clientsTable{backend: b}
	b.contacts = &contactsTable{backend: b}
	b.activities = &activitiesTable{backend: b}
	b.opportunities = &opportunitiesTable{backend: b}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, opens the connection pool and
// ensures the schema. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dsn(dbPath, config.SQLiteConfig))
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(config.SQLiteConfig.GetMaxOpenConns())
	db.SetMaxIdleConns(config.SQLiteConfig.GetMaxIdleConns())
	db.SetConnMaxIdleTime(5 * time.Minute)

	b.acquireTimeout = config.SQLiteConfig.GetAcquireTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), b.acquireTimeout)
	defer cancel()

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.attached = true

	b.logger.Info("crm database initialized",
		"path", dbPath,
		"max_open_conns", config.SQLiteConfig.GetMaxOpenConns(),
		"busy_timeout", config.SQLiteConfig.GetBusyTimeout())
	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all operations return ErrStoreDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Clients returns the clients table accessor.
func (b *Backend) Clients() types.ClientTable { return b.clients }

// Contacts returns the contacts table accessor.
func (b *Backend) Contacts() types.ContactTable { return b.contacts }

// Activities returns the activities table accessor.
func (b *Backend) Activities() types.ActivityTable { return b.activities }

// Opportunities returns the opportunities table accessor.
func (b *Backend) Opportunities() types.OpportunityTable { return b.opportunities }

// DataDir returns the directory holding the database file.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// conn returns the pool and a context bounded by the acquire timeout.
// The caller must call the returned cancel function.
func (b *Backend) conn(ctx context.Context) (*sql.DB, context.Context, context.CancelFunc, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, ctx, func() {}, types.ErrStoreDetached
	}
	ctx, cancel := context.WithTimeout(ctx, b.acquireTimeout)
	return b.db, ctx, cancel, nil
}

// dsn builds the modernc connection string. The pragmas are applied to
// every pooled connection.
func dsn(path string, cfg *types.SQLiteConfig) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.GetBusyTimeout().Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}
