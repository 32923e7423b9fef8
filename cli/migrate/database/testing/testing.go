// Package testing has the tests every dialect has to pass.
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OpenFunc returns a fresh, empty database, the dialect for it and the
// ledger location to use.
type OpenFunc func(t *testing.T) (*sql.DB, database.Dialect, database.Config)

// Test runs tests against dialect implementations.
func Test(t *testing.T, open OpenFunc) {
	t.Run("EnsureInitialized", func(t *testing.T) { TestEnsureInitialized(t, open) })
	t.Run("EmptyLedger", func(t *testing.T) { TestEmptyLedger(t, open) })
	t.Run("ApplyRecords", func(t *testing.T) { TestApplyRecords(t, open) })
	t.Run("ApplyRollsBack", func(t *testing.T) { TestApplyRollsBack(t, open) })
	t.Run("RecordUnappliedMissing", func(t *testing.T) { TestRecordUnappliedMissing(t, open) })
	t.Run("LockAndUnlock", func(t *testing.T) { TestLockAndUnlock(t, open) })
}

func openSession(t *testing.T, db *sql.DB, d database.Dialect, cfg database.Config, holder string) *database.Session {
	cfg.LockTimeout = 500 * time.Millisecond
	cfg.LockHolder = holder
	s, err := database.Open(context.Background(), db, d, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnsureInitialized(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	db, d, cfg := open(t)
	s := openSession(t, db, d, cfg, "a")

	require.NoError(t, s.Ledger.EnsureInitialized(ctx))
	require.NoError(t, s.Engine.Apply(ctx, "SELECT 1", func(ctx context.Context, tx *sql.Tx) error {
		return s.Ledger.RecordApplied(ctx, tx, 7)
	}))

	// a second call must keep the existing rows
	require.NoError(t, s.Ledger.EnsureInitialized(ctx))
	v, err := s.Ledger.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.Version(7), v)
}

func TestEmptyLedger(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	db, d, cfg := open(t)
	s := openSession(t, db, d, cfg, "a")
	require.NoError(t, s.Ledger.EnsureInitialized(ctx))

	v, err := s.Ledger.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.NilVersion, v)

	applied, err := s.Ledger.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestApplyRecords(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	db, d, cfg := open(t)
	s := openSession(t, db, d, cfg, "a")
	require.NoError(t, s.Ledger.EnsureInitialized(ctx))

	for _, v := range []source.Version{1602334616, 1602335590, 1602336010} {
		v := v
		stmt := fmt.Sprintf("CREATE TABLE t_%d (id INTEGER);", v)
		require.NoError(t, s.Engine.Apply(ctx, stmt, func(ctx context.Context, tx *sql.Tx) error {
			return s.Ledger.RecordApplied(ctx, tx, v)
		}))
	}

	v, err := s.Ledger.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.Version(1602336010), v)

	applied, err := s.Ledger.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []source.Version{1602334616, 1602335590, 1602336010}, applied)

	require.NoError(t, s.Engine.Apply(ctx, "DROP TABLE t_1602336010;", func(ctx context.Context, tx *sql.Tx) error {
		return s.Ledger.RecordUnapplied(ctx, tx, 1602336010)
	}))
	v, err = s.Ledger.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.Version(1602335590), v)

	// recording the same version twice violates the primary key
	err = s.Engine.Apply(ctx, "SELECT 1", func(ctx context.Context, tx *sql.Tx) error {
		return s.Ledger.RecordApplied(ctx, tx, 1602334616)
	})
	assert.Error(t, err)
}

func TestApplyRollsBack(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	db, d, cfg := open(t)
	s := openSession(t, db, d, cfg, "a")
	require.NoError(t, s.Ledger.EnsureInitialized(ctx))

	err := s.Engine.Apply(ctx, "CREATE TABLE half_done (id INTEGER); THIS IS NOT SQL;", func(ctx context.Context, tx *sql.Tx) error {
		return s.Ledger.RecordApplied(ctx, tx, 1)
	})
	require.Error(t, err)

	// a failing ledger write undoes the migration SQL too
	recordErr := errors.New("record failed")
	err = s.Engine.Apply(ctx, "CREATE TABLE other_half (id INTEGER);", func(ctx context.Context, tx *sql.Tx) error {
		return recordErr
	})
	require.ErrorIs(t, err, recordErr)

	v, err := s.Ledger.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.NilVersion, v)

	for _, table := range []string{"half_done", "other_half"} {
		_, err = db.ExecContext(ctx, "SELECT COUNT(1) FROM "+table)
		assert.Error(t, err, "table %s should not exist", table)
	}
}

func TestRecordUnappliedMissing(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	db, d, cfg := open(t)
	s := openSession(t, db, d, cfg, "a")
	require.NoError(t, s.Ledger.EnsureInitialized(ctx))

	err := s.Engine.Apply(ctx, "SELECT 1", func(ctx context.Context, tx *sql.Tx) error {
		return s.Ledger.RecordUnapplied(ctx, tx, 42)
	})
	assert.Error(t, err)
}

func TestLockAndUnlock(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	db, d, cfg := open(t)
	first := openSession(t, db, d, cfg, "first")
	second := openSession(t, db, d, cfg, "second")

	require.NoError(t, first.Lock(ctx))
	// try to acquire lock again
	assert.ErrorIs(t, first.Lock(ctx), database.ErrLocked)
	assert.ErrorIs(t, second.Lock(ctx), database.ErrLockTimeout)

	require.NoError(t, first.Unlock(ctx))
	require.NoError(t, first.Unlock(ctx))

	require.NoError(t, second.Lock(ctx))
	require.NoError(t, second.Unlock(ctx))

	// release must not depend on the caller's context still being alive
	require.NoError(t, first.Lock(ctx))
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, first.Unlock(cancelled))
	require.NoError(t, second.Lock(ctx))
	require.NoError(t, second.Unlock(ctx))
}
