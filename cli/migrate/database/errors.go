package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

var (
	ErrLocked      = errors.New("can't acquire lock")
	ErrLockTimeout = errors.New("timeout: can't acquire database lock")
	ErrNotLocked   = errors.New("lock is not held")

	// ErrConnection matches every *ConnectionError.
	ErrConnection = errors.New("connection failure")
)

// ConnectionError reports a transport level failure talking to the database.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConnection, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// IsConnectionError reports whether err looks like the connection to the
// database was lost or could not be established, as opposed to the server
// rejecting a statement.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnection) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify wraps connection failures in a *ConnectionError and returns
// every other error as is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	if IsConnectionError(err) {
		return &ConnectionError{Op: op, Err: err}
	}
	return err
}
