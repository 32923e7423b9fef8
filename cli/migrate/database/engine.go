package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// RecordFunc writes the ledger change belonging to a step inside the
// step's transaction.
type RecordFunc func(ctx context.Context, tx *sql.Tx) error

// Engine executes migration steps. Each step is one transaction holding
// the migration SQL and its ledger write; nothing is retried.
type Engine struct {
	conn Conn
}

func NewEngine(conn Conn) *Engine {
	return &Engine{conn: conn}
}

// Apply runs sqlText followed by record in a single transaction. On any
// error the transaction is rolled back and the error returned.
func (e *Engine) Apply(ctx context.Context, sqlText string, record RecordFunc) (err error) {
	tx, err := e.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Wrapf(err, "rollback also failed: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, sqlText); err != nil {
		return classify("execute migration", err)
	}
	if record != nil {
		if err = record(ctx, tx); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}
