// Package database holds the database side of a migration run: the ledger
// of applied versions, the engine executing one step per transaction and
// the run lock. SQL engine differences live behind Dialect.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMigrationsTable = "schema_migrations"
	DefaultSchemaName      = "public"
)

// DefaultLockTimeout sets the max time a session waits to acquire the run lock.
var DefaultLockTimeout = 15 * time.Second

// DefaultLockStaleAfter is the age after which a marker lock left behind by
// a crashed runner is taken over.
var DefaultLockStaleAfter = 15 * time.Minute

// Conn is satisfied by both *sql.DB and *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Config controls where the ledger lives and how the run lock behaves.
type Config struct {
	// MigrationsTable is the ledger table name.
	MigrationsTable string
	// SchemaName is the schema holding the ledger, for dialects that have schemas.
	SchemaName string
	// LockTimeout bounds how long Session.Lock waits for another runner.
	LockTimeout time.Duration
	// LockStaleAfter is used by dialects that lock with a marker row. A
	// holder refreshes its marker after every applied step, so a single
	// step running longer than this can still lose the lock.
	LockStaleAfter time.Duration
	// LockHolder identifies this process in marker locks.
	LockHolder string
}

// WithDefaults returns c with zero fields set to their defaults.
func (c Config) WithDefaults() Config {
	if c.MigrationsTable == "" {
		c.MigrationsTable = DefaultMigrationsTable
	}
	if c.SchemaName == "" {
		c.SchemaName = DefaultSchemaName
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.LockStaleAfter <= 0 {
		c.LockStaleAfter = DefaultLockStaleAfter
	}
	if c.LockHolder == "" {
		c.LockHolder = "aceman"
	}
	return c
}

// Dialect adapts the ledger and the run lock to one SQL engine.
//
// How to add a dialect?
//  1. Implement this interface.
//  2. Call Register in init() with the database/sql driver name(s) it serves.
//  3. Add a test that calls database/testing.Test().
type Dialect interface {
	// Name is the dialect name used in logs.
	Name() string

	// Placeholder returns the bind parameter for the n-th argument, from 1.
	Placeholder(n int) string

	// Table returns the quoted, qualified ledger table name.
	Table(cfg Config) string

	// LedgerExists reports whether the ledger table is present.
	LedgerExists(ctx context.Context, q Conn, cfg Config) (bool, error)

	// CreateLedger creates the ledger table. It is only called after
	// LedgerExists returned false.
	CreateLedger(ctx context.Context, q Conn, cfg Config) error

	// TryLock makes one attempt at taking the run lock on conn and reports
	// whether it succeeded.
	TryLock(ctx context.Context, conn *sql.Conn, cfg Config) (bool, error)

	// Unlock releases a lock taken by TryLock on the same conn.
	Unlock(ctx context.Context, conn *sql.Conn, cfg Config) error
}

// LockRefresher is implemented by dialects whose lock can go stale. The
// runner calls RefreshLock between steps while it holds the lock.
type LockRefresher interface {
	RefreshLock(ctx context.Context, conn *sql.Conn, cfg Config) error
}

var dialectsMu sync.RWMutex
var dialects = make(map[string]Dialect)

// Register makes a dialect available for the database/sql driver name.
func Register(driverName string, dialect Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if dialect == nil {
		panic("Register dialect is nil")
	}
	if _, dup := dialects[driverName]; dup {
		panic("Register called twice for dialect " + driverName)
	}
	dialects[driverName] = dialect
}

// Get returns the dialect registered for the database/sql driver name.
func Get(driverName string) (Dialect, error) {
	dialectsMu.RLock()
	d, ok := dialects[driverName]
	dialectsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("database driver: unknown driver %v (forgotten import?), registered: %s",
			driverName, strings.Join(Dialects(), ", "))
	}
	return d, nil
}

// Dialects returns the registered driver names, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
