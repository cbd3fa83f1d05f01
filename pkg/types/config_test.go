package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "negative pool size rejected",
			config:  Config{Backend: "sqlite", SQLiteConfig: &SQLiteConfig{MaxOpenConns: -1}},
			wantErr: ErrPoolSizeInvalid,
		},
		{
			name:    "negative busy timeout rejected",
			config:  Config{Backend: "sqlite", SQLiteConfig: &SQLiteConfig{BusyTimeoutMS: -5}},
			wantErr: ErrBusyTimeoutInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteConfigDefaults(t *testing.T) {
	var nilCfg *SQLiteConfig
	assert.Equal(t, DefaultMaxOpenConns, nilCfg.GetMaxOpenConns())
	assert.Equal(t, DefaultMaxIdleConns, nilCfg.GetMaxIdleConns())
	assert.Equal(t, 5*time.Second, nilCfg.GetBusyTimeout())
	assert.Equal(t, 10*time.Second, nilCfg.GetAcquireTimeout())

	cfg := &SQLiteConfig{MaxOpenConns: 2, MaxIdleConns: 6, BusyTimeoutMS: 250, AcquireTimeoutMS: 750}
	assert.Equal(t, 2, cfg.GetMaxOpenConns())
	assert.Equal(t, 2, cfg.GetMaxIdleConns(), "idle pool is capped at the open pool")
	assert.Equal(t, 250*time.Millisecond, cfg.GetBusyTimeout())
	assert.Equal(t, 750*time.Millisecond, cfg.GetAcquireTimeout())
}
