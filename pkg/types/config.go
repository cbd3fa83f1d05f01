package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend      string        `json:"backend" yaml:"backend"`
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	SQLiteConfig *SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
}

// SQLiteConfig tunes the SQLite connection pool. Zero values fall back to
// the defaults below.
type SQLiteConfig struct {
	MaxOpenConns     int `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	MaxIdleConns     int `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`
	BusyTimeoutMS    int `json:"busy_timeout_ms,omitempty" yaml:"busy_timeout_ms,omitempty"`
	AcquireTimeoutMS int `json:"acquire_timeout_ms,omitempty" yaml:"acquire_timeout_ms,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// SQLite pool defaults.
const (
	DefaultMaxOpenConns     = 8
	DefaultMaxIdleConns     = 4
	DefaultBusyTimeoutMS    = 5000
	DefaultAcquireTimeoutMS = 10000
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrPoolSizeInvalid    = errors.New("pool sizes must not be negative")
	ErrBusyTimeoutInvalid = errors.New("busy timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.SQLiteConfig != nil {
		return c.SQLiteConfig.Validate()
	}
	return nil
}

// Validate rejects negative settings. Zero means "use the default".
func (s *SQLiteConfig) Validate() error {
	if s.MaxOpenConns < 0 || s.MaxIdleConns < 0 {
		return ErrPoolSizeInvalid
	}
	if s.BusyTimeoutMS < 0 || s.AcquireTimeoutMS < 0 {
		return ErrBusyTimeoutInvalid
	}
	return nil
}

// GetMaxOpenConns returns the pool size, defaulting when unset.
func (s *SQLiteConfig) GetMaxOpenConns() int {
	if s == nil || s.MaxOpenConns == 0 {
		return DefaultMaxOpenConns
	}
	return s.MaxOpenConns
}

// GetMaxIdleConns returns the idle pool size, capped at the open pool size.
func (s *SQLiteConfig) GetMaxIdleConns() int {
	idle := DefaultMaxIdleConns
	if s != nil && s.MaxIdleConns > 0 {
		idle = s.MaxIdleConns
	}
	return min(idle, s.GetMaxOpenConns())
}

// GetBusyTimeout returns how long a connection waits on a locked database.
func (s *SQLiteConfig) GetBusyTimeout() time.Duration {
	if s == nil || s.BusyTimeoutMS == 0 {
		return DefaultBusyTimeoutMS * time.Millisecond
	}
	return time.Duration(s.BusyTimeoutMS) * time.Millisecond
}

// GetAcquireTimeout bounds each store operation, including the wait for a
// pooled connection.
func (s *SQLiteConfig) GetAcquireTimeout() time.Duration {
	if s == nil || s.AcquireTimeoutMS == 0 {
		return DefaultAcquireTimeoutMS * time.Millisecond
	}
	return time.Duration(s.AcquireTimeoutMS) * time.Millisecond
}
