// Package sqlite registers the SQLite dialect for the modernc.org/sqlite
// driver. It is meant for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	"github.com/pkg/errors"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	database.Register("sqlite", &SQLite{})
}

// SQLite has no advisory locks; the run lock is a single row in
// <ledger>_lock naming its holder. A row older than LockStaleAfter belongs
// to a runner that died and is replaced.
type SQLite struct{}

func (s *SQLite) Name() string {
	return "sqlite"
}

func (s *SQLite) Placeholder(int) string {
	return "?"
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Table ignores SchemaName; the ledger lives in the main database.
func (s *SQLite) Table(cfg database.Config) string {
	return quote(cfg.MigrationsTable)
}

func (s *SQLite) lockTable(cfg database.Config) string {
	return quote(cfg.MigrationsTable + "_lock")
}

func tableExists(ctx context.Context, q database.Conn, name string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLite) LedgerExists(ctx context.Context, q database.Conn, cfg database.Config) (bool, error) {
	return tableExists(ctx, q, cfg.MigrationsTable)
}

func (s *SQLite) CreateLedger(ctx context.Context, q database.Conn, cfg database.Config) error {
	_, err := q.ExecContext(ctx, `CREATE TABLE `+s.Table(cfg)+` (version INTEGER NOT NULL PRIMARY KEY, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`)
	return err
}

// isBusy reports whether err means another connection holds the database
// write lock.
func isBusy(err error) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// TryLock reports a busy database as a held lock, so Session.Lock keeps
// polling until LockTimeout.
func (s *SQLite) TryLock(ctx context.Context, conn *sql.Conn, cfg database.Config) (bool, error) {
	ok, err := s.tryLock(ctx, conn, cfg)
	if err != nil && isBusy(err) {
		return false, nil
	}
	return ok, err
}

func (s *SQLite) tryLock(ctx context.Context, conn *sql.Conn, cfg database.Config) (bool, error) {
	exists, err := tableExists(ctx, conn, cfg.MigrationsTable+"_lock")
	if err != nil {
		return false, err
	}
	if !exists {
		_, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.lockTable(cfg)+` (id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1), holder TEXT NOT NULL, acquired_at INTEGER NOT NULL)`)
		if err != nil {
			return false, err
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now()
	stale := now.Add(-cfg.LockStaleAfter).Unix()
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.lockTable(cfg)+` WHERE acquired_at < ?`, stale); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+s.lockTable(cfg)+` (id, holder, acquired_at) VALUES (1, ?, ?) ON CONFLICT (id) DO NOTHING`,
		cfg.LockHolder, now.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLite) Unlock(ctx context.Context, conn *sql.Conn, cfg database.Config) error {
	res, err := conn.ExecContext(ctx, `DELETE FROM `+s.lockTable(cfg)+` WHERE id = 1 AND holder = ?`, cfg.LockHolder)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotLocked
	}
	return nil
}

// RefreshLock moves acquired_at of a marker this holder owns to now.
func (s *SQLite) RefreshLock(ctx context.Context, conn *sql.Conn, cfg database.Config) error {
	res, err := conn.ExecContext(ctx, `UPDATE `+s.lockTable(cfg)+` SET acquired_at = ? WHERE id = 1 AND holder = ?`,
		time.Now().Unix(), cfg.LockHolder)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotLocked
	}
	return nil
}
