package source

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Registry is the ordered, read-only set of migrations known to the binary.
// Build it once with NewRegistry or Load and pass it to whoever needs it.
type Registry struct {
	descriptors []Descriptor
	index       map[Version]int
}

// NewRegistry validates descriptors and returns them as a registry sorted by
// version. It fails with a *DuplicateVersionError when two descriptors share
// a version.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	r := &Registry{
		descriptors: sorted,
		index:       make(map[Version]int, len(sorted)),
	}
	for i, d := range sorted {
		if d.Version.IsNil() {
			return nil, errors.Wrapf(ErrInvalidVersion, "migration %q", d.Name)
		}
		if i > 0 && sorted[i-1].Version == d.Version {
			return nil, &DuplicateVersionError{
				Version: d.Version,
				First:   sorted[i-1].String(),
				Second:  d.String(),
			}
		}
		if strings.TrimSpace(d.Up) == "" {
			return nil, errors.Wrapf(ErrEmptyMigration, "%s (%s)", d, Up)
		}
		if strings.TrimSpace(d.Down) == "" {
			return nil, errors.Wrapf(ErrEmptyMigration, "%s (%s)", d, Down)
		}
		r.index[d.Version] = i
	}
	return r, nil
}

// All returns every descriptor in ascending version order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Versions returns every version in ascending order.
func (r *Registry) Versions() []Version {
	out := make([]Version, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.Version
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.descriptors)
}

// First returns the lowest version, or NilVersion for an empty registry.
func (r *Registry) First() Version {
	if len(r.descriptors) == 0 {
		return NilVersion
	}
	return r.descriptors[0].Version
}

// Last returns the highest version, or NilVersion for an empty registry.
func (r *Registry) Last() Version {
	if len(r.descriptors) == 0 {
		return NilVersion
	}
	return r.descriptors[len(r.descriptors)-1].Version
}

// Contains reports whether v is the version of a registered descriptor.
func (r *Registry) Contains(v Version) bool {
	_, ok := r.index[v]
	return ok
}

// Lookup returns the descriptor registered for v.
func (r *Registry) Lookup(v Version) (Descriptor, error) {
	i, ok := r.index[v]
	if !ok {
		return Descriptor{}, &UnknownVersionError{Version: v}
	}
	return r.descriptors[i], nil
}

// Resolve checks that v can be used as a migration target. NilVersion is
// always valid and means "before the first migration".
func (r *Registry) Resolve(v Version) error {
	if v.IsNil() || r.Contains(v) {
		return nil
	}
	return &UnknownVersionError{Version: v}
}

// DescriptorsBetween returns, in ascending order, the descriptors whose
// version lies in (low, high].
func (r *Registry) DescriptorsBetween(low, high Version) []Descriptor {
	if high <= low {
		return nil
	}
	start := sort.Search(len(r.descriptors), func(i int) bool {
		return r.descriptors[i].Version > low
	})
	end := sort.Search(len(r.descriptors), func(i int) bool {
		return r.descriptors[i].Version > high
	})
	out := make([]Descriptor, end-start)
	copy(out, r.descriptors[start:end])
	return out
}

// Reverse returns a copy of descriptors in the opposite order.
func Reverse(descriptors []Descriptor) []Descriptor {
	out := make([]Descriptor, len(descriptors))
	for i, d := range descriptors {
		out[len(descriptors)-1-i] = d
	}
	return out
}
