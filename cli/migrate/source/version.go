package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version identifies a migration. It is taken from the numeric prefix of
// the migration file name (a unix timestamp by convention) and orders
// migrations totally.
type Version uint64

// NilVersion is the version of a database on which no migration has been
// applied. It sorts before every valid migration version and is never the
// version of a descriptor.
const NilVersion Version = 0

// nilVersionName is how NilVersion is rendered and accepted on the command line.
const nilVersionName = "none"

// ParseVersion parses a version given either as bare digits ("1602334616")
// or as a migration file stem ("1602334616_create_operators"). "none" and
// "0" parse to NilVersion.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, nilVersionName) {
		return NilVersion, nil
	}
	digits := s
	if i := strings.IndexByte(s, '_'); i >= 0 {
		digits = s[:i]
	}
	if digits == "" {
		return NilVersion, errors.Wrapf(ErrInvalidVersion, "%q", s)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return NilVersion, errors.Wrapf(ErrInvalidVersion, "%q", s)
	}
	if v > math.MaxInt64 {
		return NilVersion, errors.Wrapf(ErrInvalidVersion, "%q is out of range", s)
	}
	return Version(v), nil
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after o.
func (v Version) Compare(o Version) int {
	switch {
	case v < o:
		return -1
	case v > o:
		return 1
	}
	return 0
}

// IsNil reports whether v is NilVersion.
func (v Version) IsNil() bool {
	return v == NilVersion
}

// Int64 returns v in the form stored by the ledger.
func (v Version) Int64() int64 {
	return int64(v)
}

func (v Version) String() string {
	if v == NilVersion {
		return nilVersionName
	}
	return strconv.FormatUint(uint64(v), 10)
}
