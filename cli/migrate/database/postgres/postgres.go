// Package postgres registers the PostgreSQL dialect for the lib/pq
// ("postgres") and pgx ("pgx") database/sql drivers.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

func init() {
	d := &Postgres{}
	database.Register("postgres", d)
	database.Register("pgx", d)
}

// Postgres keeps the ledger in a schema qualified table and serializes runs
// with a session level advisory lock.
type Postgres struct{}

func (p *Postgres) Name() string {
	return "postgres"
}

func (p *Postgres) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (p *Postgres) Table(cfg database.Config) string {
	return pq.QuoteIdentifier(cfg.SchemaName) + "." + pq.QuoteIdentifier(cfg.MigrationsTable)
}

func (p *Postgres) LedgerExists(ctx context.Context, q database.Conn, cfg database.Config) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM information_schema.tables WHERE table_name = $1 AND table_schema = $2`,
		cfg.MigrationsTable, cfg.SchemaName,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Postgres) CreateLedger(ctx context.Context, q database.Conn, cfg database.Config) error {
	_, err := q.ExecContext(ctx, `CREATE TABLE `+p.Table(cfg)+` (version bigint not null primary key, applied_at timestamptz not null default now())`)
	return err
}

func (p *Postgres) TryLock(ctx context.Context, conn *sql.Conn, cfg database.Config) (bool, error) {
	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, LockKey(cfg)).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *Postgres) Unlock(ctx context.Context, conn *sql.Conn, cfg database.Config) error {
	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, LockKey(cfg)).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return database.ErrNotLocked
	}
	return nil
}

// LockKey derives the advisory lock key from the ledger location, so runs
// against different ledgers in one database do not block each other.
func LockKey(cfg database.Config) int64 {
	h := fnv.New64a()
	h.Write([]byte("aceman:" + cfg.SchemaName + "." + cfg.MigrationsTable))
	return int64(h.Sum64())
}
