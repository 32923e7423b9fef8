// Package db opens the database aceman works on, picking the driver and
// the migration dialect from the connection URL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	_ "github.com/aceman-ct/aceman/cli/migrate/database/postgres"
	_ "github.com/aceman-ct/aceman/cli/migrate/database/sqlite"
	"github.com/avast/retry-go"
	"github.com/pkg/errors"
)

const (
	DriverPQ     = "postgres"
	DriverPGX    = "pgx"
	DriverSQLite = "sqlite"

	DefaultMaxOpenConns    = 5
	DefaultPingTimeout     = 10 * time.Second
	DefaultConnectAttempts = 3
	// DefaultBusyTimeout is how long a SQLite connection waits on another
	// connection's write lock before failing with SQLITE_BUSY.
	DefaultBusyTimeout = 5 * time.Second
)

var ErrUnsupportedURL = errors.New("unsupported database url")

type Options struct {
	URL string
	// Driver selects the Postgres driver, DriverPQ or DriverPGX. It is
	// ignored for SQLite URLs.
	Driver       string
	MaxOpenConns int
	PingTimeout  time.Duration
	// ConnectAttempts is how many times the first ping is tried.
	ConnectAttempts uint
}

// DB is an open pool together with the dialect the migration runner uses
// on it.
type DB struct {
	*sql.DB
	Dialect database.Dialect
	Driver  string
}

// Resolve returns the database/sql driver name and data source name for
// opts.URL.
func Resolve(opts Options) (driverName, dsn string, err error) {
	raw := strings.TrimSpace(opts.URL)
	if raw == "" {
		return "", "", errors.Wrap(ErrUnsupportedURL, "database url is empty")
	}
	if strings.HasPrefix(raw, "file:") {
		return DriverSQLite, withBusyTimeout(raw), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrap(ErrUnsupportedURL, err.Error())
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		switch opts.Driver {
		case "", DriverPQ:
			return DriverPQ, raw, nil
		case DriverPGX:
			return DriverPGX, raw, nil
		}
		return "", "", errors.Wrapf(ErrUnsupportedURL, "unknown postgres driver %q", opts.Driver)
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(raw, u.Scheme+"://")
		if path == "" {
			return "", "", errors.Wrapf(ErrUnsupportedURL, "%s has no path", raw)
		}
		return DriverSQLite, withBusyTimeout("file:" + path), nil
	}
	return "", "", errors.Wrapf(ErrUnsupportedURL, "scheme %q", u.Scheme)
}

// withBusyTimeout adds the busy_timeout pragma to a SQLite DSN that does
// not set one.
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, DefaultBusyTimeout.Milliseconds())
}

// Open opens and pings the database named by opts.URL.
func Open(ctx context.Context, opts Options) (*DB, error) {
	driverName, dsn, err := Resolve(opts)
	if err != nil {
		return nil, err
	}
	dialect, err := database.Get(driverName)
	if err != nil {
		return nil, err
	}
	pool, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &database.ConnectionError{Op: "open", Err: err}
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenConns
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	attempts := opts.ConnectAttempts
	if attempts == 0 {
		attempts = DefaultConnectAttempts
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err = retry.Do(
		func() error {
			return pool.PingContext(pingCtx)
		},
		retry.Context(pingCtx),
		retry.Attempts(attempts),
		retry.Delay(250*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		pool.Close()
		return nil, &database.ConnectionError{Op: "connect to " + Redact(opts.URL), Err: err}
	}
	return &DB{DB: pool, Dialect: dialect, Driver: driverName}, nil
}

// Redact hides the password of a connection URL for logs and errors.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
