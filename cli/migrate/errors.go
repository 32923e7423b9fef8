package migrate

import (
	"fmt"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/pkg/errors"
)

var (
	// ErrNoMigrationsToRun signals an empty plan inside the runner. Callers
	// of the runner see it as OutcomeNoMigrationsToRun with a nil error.
	ErrNoMigrationsToRun = errors.New("no migrations to run")

	ErrLedgerInvariant = errors.New("ledger invariant violation")
	ErrStepFailed      = errors.New("migration step failed")
)

// StepError is returned when a migration step fails. The run stopped at
// Version; every step before it is committed and recorded.
type StepError struct {
	Version   source.Version
	Name      string
	Direction source.Direction
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration %d_%s (%s) failed: %v", uint64(e.Version), e.Name, e.Direction, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

// IsConnectionFailure reports whether the step failed because the database
// connection broke rather than because the SQL was rejected.
func (e *StepError) IsConnectionFailure() bool {
	return database.IsConnectionError(e.Err)
}

// LedgerInvariantError is returned when the applied versions are not a
// contiguous prefix of the registry. The ledger is left untouched for an
// operator to inspect.
type LedgerInvariantError struct {
	Current source.Version
	// Missing are registry versions below Current that are not applied.
	Missing []source.Version
	// Unknown are applied versions the registry does not contain.
	Unknown []source.Version
}

func (e *LedgerInvariantError) Error() string {
	return fmt.Sprintf("%s: applied versions up to %s are not a contiguous prefix of the known migrations (missing: %v, unknown: %v)",
		ErrLedgerInvariant, e.Current, e.Missing, e.Unknown)
}

func (e *LedgerInvariantError) Is(target error) bool {
	return target == ErrLedgerInvariant
}

// checkLedger verifies that applied, the ascending ledger contents, holds
// exactly the registry versions up to current.
func checkLedger(registry *source.Registry, current source.Version, applied []source.Version) error {
	e := &LedgerInvariantError{Current: current}
	isApplied := make(map[source.Version]bool, len(applied))
	for _, v := range applied {
		isApplied[v] = true
		if !registry.Contains(v) {
			e.Unknown = append(e.Unknown, v)
		}
	}
	for _, v := range registry.Versions() {
		if v > current {
			break
		}
		if !isApplied[v] {
			e.Missing = append(e.Missing, v)
		}
	}
	if len(applied) > 0 && applied[len(applied)-1] != current {
		// the ledger changed between the two reads
		e.Unknown = append(e.Unknown, applied[len(applied)-1])
	}
	if len(e.Missing) > 0 || len(e.Unknown) > 0 {
		return e
	}
	return nil
}
