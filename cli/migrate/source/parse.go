package source

import (
	"regexp"

	"github.com/pkg/errors"
)

// Regex matches the following pattern:
//
//	123_name.up.sql
//	123_name.down.sql
var Regex = regexp.MustCompile(`^([0-9]+)_(.*)\.(` + string(Down) + `|` + string(Up) + `)\.sql$`)

// File is a migration file name split into its parts.
type File struct {
	Version Version
	// Digits is the version prefix as written, used to check that every
	// file uses the same width.
	Digits    string
	Name      string
	Direction Direction
	Raw       string
}

// Parse returns the File for a name matching Regex.
func Parse(raw string) (*File, error) {
	m := Regex.FindStringSubmatch(raw)
	if len(m) != 4 {
		return nil, ErrParse
	}
	v, err := ParseVersion(m[1])
	if err != nil {
		return nil, err
	}
	if v.IsNil() {
		return nil, errors.Wrapf(ErrInvalidVersion, "%s: version must be greater than zero", raw)
	}
	return &File{
		Version:   v,
		Digits:    m[1],
		Name:      m[2],
		Direction: Direction(m[3]),
		Raw:       raw,
	}, nil
}
