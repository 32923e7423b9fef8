package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/pkg/errors"
)

// Ledger is the table recording which migration versions are applied. It
// is the only source of truth for the schema version; nothing is cached.
type Ledger struct {
	conn    Conn
	dialect Dialect
	config  Config
	table   string
}

func NewLedger(conn Conn, dialect Dialect, config Config) *Ledger {
	config = config.WithDefaults()
	return &Ledger{
		conn:    conn,
		dialect: dialect,
		config:  config,
		table:   dialect.Table(config),
	}
}

// Table returns the qualified ledger table name.
func (l *Ledger) Table() string {
	return l.table
}

// Exists reports whether the ledger table is present.
func (l *Ledger) Exists(ctx context.Context) (bool, error) {
	exists, err := l.dialect.LedgerExists(ctx, l.conn, l.config)
	if err != nil {
		return false, errors.Wrapf(classify("detect ledger", err), "cannot check for table %s", l.table)
	}
	return exists, nil
}

// EnsureInitialized creates the ledger table unless it already exists.
func (l *Ledger) EnsureInitialized(ctx context.Context) error {
	exists, err := l.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := l.dialect.CreateLedger(ctx, l.conn, l.config); err != nil {
		return errors.Wrapf(classify("create ledger", err), "cannot create table %s", l.table)
	}
	return nil
}

// CurrentVersion returns the highest applied version, or source.NilVersion
// when nothing is applied.
func (l *Ledger) CurrentVersion(ctx context.Context) (source.Version, error) {
	var v sql.NullInt64
	query := fmt.Sprintf(`SELECT MAX(version) FROM %s`, l.table)
	if err := l.conn.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return source.NilVersion, errors.Wrap(classify("read current version", err), "cannot read current version")
	}
	if !v.Valid {
		return source.NilVersion, nil
	}
	return source.Version(v.Int64), nil
}

// AppliedVersions returns every applied version in ascending order.
func (l *Ledger) AppliedVersions(ctx context.Context) ([]source.Version, error) {
	query := fmt.Sprintf(`SELECT version FROM %s ORDER BY version ASC`, l.table)
	rows, err := l.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(classify("read applied versions", err), "cannot read applied versions")
	}
	defer rows.Close()

	versions := []source.Version{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "cannot scan applied version")
		}
		versions = append(versions, source.Version(v))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(classify("read applied versions", err), "cannot read applied versions")
	}
	return versions, nil
}

// RecordApplied inserts the row for v. It must run in the transaction that
// executed the migration.
func (l *Ledger) RecordApplied(ctx context.Context, tx *sql.Tx, v source.Version) error {
	query := fmt.Sprintf(`INSERT INTO %s (version) VALUES (%s)`, l.table, l.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, query, v.Int64()); err != nil {
		return errors.Wrapf(classify("record applied", err), "cannot record version %s as applied", v)
	}
	return nil
}

// RecordUnapplied deletes the row for v. It must run in the transaction
// that reverted the migration. Deleting a version that is not recorded is
// an error.
func (l *Ledger) RecordUnapplied(ctx context.Context, tx *sql.Tx, v source.Version) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE version = %s`, l.table, l.dialect.Placeholder(1))
	res, err := tx.ExecContext(ctx, query, v.Int64())
	if err != nil {
		return errors.Wrapf(classify("record unapplied", err), "cannot remove version %s", v)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "cannot remove version %s", v)
	}
	if n != 1 {
		return fmt.Errorf("cannot remove version %s: expected 1 ledger row, found %d", v, n)
	}
	return nil
}
