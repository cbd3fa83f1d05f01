// Tests for the SQLite backend lifecycle.
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crm/pkg/types"
)

// setupBackend attaches a Backend to a fresh temp directory and detaches it
// when the test ends.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	return attachAt(t, t.TempDir())
}

func attachAt(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

// createClient stores a minimal client named name.
func createClient(t *testing.T, b *Backend, name string) *types.Client {
	t.Helper()
	c, err := b.Clients().Create(context.Background(), types.ClientCreate{Name: name})
	require.NoError(t, err)
	return c
}

func TestBackend_Attach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dir, DatabaseFile))
	assert.NoError(t, err, "database file should exist")

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
	assert.Equal(t, dir, b.DataDir())
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should succeed")

	_, err := b.Clients().Get(context.Background(), "cli_x")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Summary(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	dir := t.TempDir()

	first := NewBackend()
	require.NoError(t, first.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	c, err := first.Clients().Create(context.Background(), types.ClientCreate{Name: "Acme"})
	require.NoError(t, err)
	require.NoError(t, first.Detach())

	second := attachAt(t, dir)
	got, err := second.Clients().Get(context.Background(), c.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, ensureSchema(ctx, b.db))
	require.NoError(t, ensureSchema(ctx, b.db))

	var n int
	require.NoError(t, b.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%'").Scan(&n))
	assert.Equal(t, len(indexDDL), n)
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/crm.db", nil)
	assert.True(t, strings.HasPrefix(got, "file:/tmp/crm.db?"))
	assert.Contains(t, got, "foreign_keys")
	assert.Contains(t, got, "busy_timeout%285000%29")
}
