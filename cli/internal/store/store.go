// Package store reads and writes the operator catalog kept in the tables
// created by the embedded migrations.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aceman-ct/aceman/cli/internal/ctlog"
	"github.com/aceman-ct/aceman/cli/migrate/database"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Store struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *logrus.Logger
	now     func() time.Time
}

func New(db *sql.DB, dialect database.Dialect, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// rebind rewrites ? placeholders for the dialect.
func (s *Store) rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SyncResult counts the rows SyncOperators created or changed.
type SyncResult struct {
	Operators   int
	Emails      int
	Logs        int
	UpdatedLogs int
}

// SyncOperators makes the catalog contain every operator of the list with
// its emails and logs. Rows are found by operator name, email and log id;
// nothing is deleted. Each operator is written in its own transaction.
func (s *Store) SyncOperators(ctx context.Context, operators []ctlog.Operator) (*SyncResult, error) {
	res := &SyncResult{}
	for _, op := range operators {
		if err := s.syncOperator(ctx, op, res); err != nil {
			return res, errors.Wrapf(err, "cannot sync operator %q", op.Name)
		}
	}
	return res, nil
}

func (s *Store) syncOperator(ctx context.Context, op ctlog.Operator, res *SyncResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	opID, created, err := s.findOrCreateOperator(ctx, tx, op.Name)
	if err != nil {
		return err
	}
	if created {
		res.Operators++
	}
	for _, email := range op.Email {
		created, err := s.findOrCreateEmail(ctx, tx, opID, email)
		if err != nil {
			return err
		}
		if created {
			res.Emails++
		}
	}
	for _, l := range op.Logs {
		created, updated, err := s.upsertLog(ctx, tx, opID, l)
		if err != nil {
			return err
		}
		if created {
			res.Logs++
		}
		if updated {
			res.UpdatedLogs++
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"operator":    op.Name,
		"operator_id": opID,
		"logs":        len(op.Logs),
	}).Debug("operator synced")
	return nil
}

func (s *Store) findOrCreateOperator(ctx context.Context, tx *sql.Tx, name string) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM operators WHERE name = ?`), name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, errors.Wrap(err, "cannot find operator")
	}
	err = tx.QueryRowContext(ctx, s.rebind(`INSERT INTO operators (name) VALUES (?) RETURNING id`), name).Scan(&id)
	if err != nil {
		return 0, false, errors.Wrap(err, "cannot create operator")
	}
	s.logger.WithField("operator", name).Info("creating operator")
	return id, true, nil
}

func (s *Store) findOrCreateEmail(ctx context.Context, tx *sql.Tx, opID int64, email string) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM operator_emails WHERE email = ? AND operator_id = ?`), email, opID).Scan(&id)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, errors.Wrap(err, "cannot find operator email")
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO operator_emails (email, operator_id) VALUES (?, ?)`), email, opID); err != nil {
		return false, errors.Wrapf(err, "cannot create operator email %s", email)
	}
	return true, nil
}

// upsertLog inserts a log or refreshes the state of a known one.
func (s *Store) upsertLog(ctx context.Context, tx *sql.Tx, opID int64, l ctlog.Log) (created, updated bool, err error) {
	state, stateTime := sql.NullString{}, s.now()
	if l.State != nil {
		state = sql.NullString{String: string(l.State.Kind), Valid: true}
		stateTime = l.State.Timestamp.UTC()
	}
	logType := sql.NullString{String: string(l.LogType), Valid: l.LogType != ""}
	dns := sql.NullString{String: l.DNS, Valid: l.DNS != ""}

	var (
		id           int64
		curState     sql.NullString
		curStateTime time.Time
	)
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT id, state, state_time FROM operator_logs WHERE log_id = ? AND operator_id = ?`),
		l.LogID, opID,
	).Scan(&id, &curState, &curStateTime)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO operator_logs
			(description, key, log_id, url, mmd, dns, log_type, operator_id, state, state_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			l.Description, l.Key, l.LogID, l.URL, int64(l.MMD), dns, logType, opID, state, stateTime)
		if err != nil {
			return false, false, errors.Wrapf(err, "cannot create log %s", l.LogID)
		}
		return true, false, nil
	case err != nil:
		return false, false, errors.Wrapf(err, "cannot find log %s", l.LogID)
	}

	if l.State == nil || (curState == state && curStateTime.Equal(stateTime)) {
		return false, false, nil
	}
	_, err = tx.ExecContext(ctx,
		s.rebind(`UPDATE operator_logs SET state = ?, state_time = ?, updated_at = ? WHERE id = ?`),
		state, stateTime, s.now(), id)
	if err != nil {
		return false, false, errors.Wrapf(err, "cannot update log %s", l.LogID)
	}
	return false, true, nil
}

// LogEntry is one row of ListLogs.
type LogEntry struct {
	Operator    string    `json:"operator"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	LogID       string    `json:"log_id"`
	MMD         int64     `json:"mmd"`
	LogType     string    `json:"log_type,omitempty"`
	State       string    `json:"state,omitempty"`
	StateTime   time.Time `json:"state_time"`
}

// ListLogs returns known logs ordered by operator and description. A limit
// of zero or less returns all of them.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	query := `SELECT o.name, l.description, l.url, l.log_id, l.mmd, l.log_type, l.state, l.state_time
		FROM operator_logs l JOIN operators o ON o.id = l.operator_id
		ORDER BY o.name, l.description, l.id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list logs")
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		var description, logType, state sql.NullString
		if err := rows.Scan(&e.Operator, &description, &e.URL, &e.LogID, &e.MMD, &logType, &state, &e.StateTime); err != nil {
			return nil, errors.Wrap(err, "cannot scan log")
		}
		e.Description, e.LogType, e.State = description.String, logType.String, state.String
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "cannot list logs")
}
