package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	dt "github.com/aceman-ct/aceman/cli/migrate/database/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) (*sql.DB, database.Dialect, database.Config) {
	path := filepath.Join(t.TempDir(), "aceman.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d, err := database.Get("sqlite")
	require.NoError(t, err)
	return db, d, database.Config{}
}

func TestSQLite(t *testing.T) {
	dt.Test(t, open)
}

func TestTableQuoting(t *testing.T) {
	d := &SQLite{}
	cfg := database.Config{MigrationsTable: `odd"name`}.WithDefaults()
	assert.Equal(t, `"odd""name"`, d.Table(cfg))
	assert.Equal(t, `"odd""name_lock"`, d.lockTable(cfg))
}

func TestStaleLockIsTakenOver(t *testing.T) {
	ctx := context.Background()
	db, d, _ := open(t)

	crashed, err := database.Open(ctx, db, d, database.Config{LockHolder: "crashed"})
	require.NoError(t, err)
	defer crashed.Close()
	require.NoError(t, crashed.Lock(ctx))

	// age the marker past the stale limit, as if its runner died an hour ago
	_, err = db.ExecContext(ctx, `UPDATE "schema_migrations_lock" SET acquired_at = ?`, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	next, err := database.Open(ctx, db, d, database.Config{
		LockHolder:     "next",
		LockTimeout:    time.Second,
		LockStaleAfter: time.Minute,
	})
	require.NoError(t, err)
	defer next.Close()
	require.NoError(t, next.Lock(ctx))

	var holder string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT holder FROM "schema_migrations_lock"`).Scan(&holder))
	assert.Equal(t, "next", holder)

	require.NoError(t, next.Unlock(ctx))
	// the crashed runner no longer owns the marker
	assert.ErrorIs(t, crashed.Unlock(ctx), database.ErrNotLocked)
}

func TestRefreshKeepsLongRunLocked(t *testing.T) {
	ctx := context.Background()
	db, d, _ := open(t)

	long, err := database.Open(ctx, db, d, database.Config{LockHolder: "long"})
	require.NoError(t, err)
	defer long.Close()
	assert.ErrorIs(t, long.RefreshLock(ctx), database.ErrNotLocked)
	require.NoError(t, long.Lock(ctx))

	_, err = db.ExecContext(ctx, `UPDATE "schema_migrations_lock" SET acquired_at = ?`, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	require.NoError(t, long.RefreshLock(ctx))

	other, err := database.Open(ctx, db, d, database.Config{
		LockHolder:     "other",
		LockTimeout:    300 * time.Millisecond,
		LockStaleAfter: time.Minute,
	})
	require.NoError(t, err)
	defer other.Close()
	assert.ErrorIs(t, other.Lock(ctx), database.ErrLockTimeout)

	require.NoError(t, long.Unlock(ctx))
}

func TestBusyDatabaseWaitsForLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aceman.db")
	writer, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer writer.Close()
	// no busy_timeout, so every statement against the held database fails fast
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	d, err := database.Get("sqlite")
	require.NoError(t, err)

	tx, err := writer.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `CREATE TABLE hold (id INTEGER)`)
	require.NoError(t, err)

	s, err := database.Open(ctx, db, d, database.Config{LockTimeout: 300 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()
	assert.ErrorIs(t, s.Lock(ctx), database.ErrLockTimeout)

	require.NoError(t, tx.Rollback())
	require.NoError(t, s.Lock(ctx))
	require.NoError(t, s.Unlock(ctx))
}
