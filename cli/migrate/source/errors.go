package source

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrParse is returned by Parse for names that are not migration files.
	ErrParse = errors.New("no match")

	ErrInvalidVersion   = errors.New("invalid migration version")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	ErrUnknownVersion   = errors.New("unknown migration version")
	ErrEmptyMigration   = errors.New("empty migration")
	ErrIncomplete       = errors.New("incomplete migration")
)

// DuplicateVersionError is returned when two descriptors share a version.
type DuplicateVersionError struct {
	Version Version
	First   string
	Second  string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("found duplicate migrations for version %d\n- %s\n- %s", e.Version, e.First, e.Second)
}

func (e *DuplicateVersionError) Is(target error) bool {
	return target == ErrDuplicateVersion
}

// UnknownVersionError is returned when a version is not part of the registry.
type UnknownVersionError struct {
	Version Version
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownVersion, e.Version)
}

func (e *UnknownVersionError) Is(target error) bool {
	return target == ErrUnknownVersion
}
