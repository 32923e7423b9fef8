package migrate

import (
	"sort"

	"github.com/aceman-ct/aceman/cli/migrate/source"
)

type MigrationStatus struct {
	// Version is the version of this migration.
	Version source.Version `json:"version"`

	// Name is empty for versions only the database knows about.
	Name string `json:"name,omitempty"`

	// Check if the migration is applied on the database
	IsApplied bool `json:"database_status"`

	// Check if the migration is compiled into the binary.
	IsPresent bool `json:"source_status"`
}

type Status struct {
	// Current is the highest applied version.
	Current source.Version `json:"current_version"`
	// Consistent is false when the ledger breaks the contiguous prefix rule.
	Consistent bool                                `json:"consistent"`
	Index      []source.Version                    `json:"migrations"`
	Migrations map[source.Version]*MigrationStatus `json:"status"`
}

func NewStatus() *Status {
	return &Status{
		Index:      make([]source.Version, 0),
		Migrations: make(map[source.Version]*MigrationStatus),
	}
}

func (i *Status) Append(m *MigrationStatus) (ok bool) {
	if m == nil {
		return false
	}

	if i.Migrations[m.Version] == nil {
		i.Migrations[m.Version] = m
	} else {
		// If the Version already exists
		i.Migrations[m.Version].IsApplied = m.IsApplied
	}

	i.buildIndex()
	return true
}

func (i *Status) buildIndex() {
	i.Index = make([]source.Version, 0, len(i.Migrations))
	for version := range i.Migrations {
		i.Index = append(i.Index, version)
	}
	sort.Slice(i.Index, func(a, b int) bool { return i.Index[a] < i.Index[b] })
}

func (i *Status) Read(version source.Version) (m *MigrationStatus, ok bool) {
	if mx, ok := i.Migrations[version]; ok {
		return mx, true
	}
	return nil, false
}

// List returns the statuses in version order.
func (i *Status) List() []*MigrationStatus {
	out := make([]*MigrationStatus, 0, len(i.Index))
	for _, v := range i.Index {
		out = append(out, i.Migrations[v])
	}
	return out
}

// Pending counts migrations present in the binary but not applied.
func (i *Status) Pending() int {
	n := 0
	for _, m := range i.Migrations {
		if m.IsPresent && !m.IsApplied {
			n++
		}
	}
	return n
}
