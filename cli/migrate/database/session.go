package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
)

var lockPollInterval = 100 * time.Millisecond

const unlockTimeout = 10 * time.Second

// Session pins one pooled connection for the length of a migration run, so
// the run lock, the ledger reads and every step share a database session.
type Session struct {
	conn    *sql.Conn
	dialect Dialect
	config  Config
	locked  bool

	Ledger *Ledger
	Engine *Engine
}

// Open checks a connection out of db. The caller owns db; Close only
// returns the connection to the pool.
func Open(ctx context.Context, db *sql.DB, dialect Dialect, config Config) (*Session, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: "acquire connection", Err: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	config = config.WithDefaults()
	return &Session{
		conn:    conn,
		dialect: dialect,
		config:  config,
		Ledger:  NewLedger(conn, dialect, config),
		Engine:  NewEngine(conn),
	}, nil
}

// Lock takes the run lock, polling until it is free or LockTimeout passes.
func (s *Session) Lock(ctx context.Context) error {
	if s.locked {
		return ErrLocked
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := s.dialect.TryLock(lockCtx, s.conn, s.config)
		if err == nil && ok {
			s.locked = true
			return nil
		}
		if err != nil && lockCtx.Err() == nil {
			return errors.Wrap(classify("lock", err), "cannot acquire migration lock")
		}
		select {
		case <-lockCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// Unlock releases the run lock. It runs even when ctx is already cancelled.
// If the release statement fails the connection is discarded, which ends
// the database session and any session scoped lock with it.
func (s *Session) Unlock(ctx context.Context) error {
	if !s.locked {
		return nil
	}
	s.locked = false

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
	defer cancel()
	if err := s.dialect.Unlock(ctx, s.conn, s.config); err != nil {
		_ = s.conn.Raw(func(interface{}) error { return driver.ErrBadConn })
		return errors.Wrap(err, "cannot release migration lock")
	}
	return nil
}

// RefreshLock tells the dialect the run lock is still in use, so a long run
// is not mistaken for an abandoned one. It is a no-op for dialects whose
// lock cannot go stale.
func (s *Session) RefreshLock(ctx context.Context) error {
	if !s.locked {
		return ErrNotLocked
	}
	r, ok := s.dialect.(LockRefresher)
	if !ok {
		return nil
	}
	if err := r.RefreshLock(ctx, s.conn, s.config); err != nil {
		return errors.Wrap(classify("refresh lock", err), "cannot refresh migration lock")
	}
	return nil
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}
