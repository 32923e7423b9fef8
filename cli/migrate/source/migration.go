package source

import (
	"fmt"
)

// Direction is either up or down.
type Direction string

const (
	Down Direction = "down"
	Up   Direction = "up"
)

// Descriptor pairs a schema version with the SQL that applies it and the SQL
// that reverts it. Down is expected to undo exactly what Up does; nothing
// checks this.
type Descriptor struct {
	Version Version
	// Name is the human readable part of the file name.
	Name string
	Up   string
	Down string
}

// SQL returns the statements to run when migrating in direction d.
func (d Descriptor) SQL(dir Direction) string {
	if dir == Down {
		return d.Down
	}
	return d.Up
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%d_%s", uint64(d.Version), d.Name)
}
