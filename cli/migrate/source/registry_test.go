package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desc(v Version, name string) Descriptor {
	return Descriptor{
		Version: v,
		Name:    name,
		Up:      "CREATE TABLE " + name + " (id int);",
		Down:    "DROP TABLE " + name + ";",
	}
}

func TestNewRegistrySorts(t *testing.T) {
	r, err := NewRegistry(desc(30, "c"), desc(10, "a"), desc(20, "b"))
	require.NoError(t, err)
	assert.Equal(t, []Version{10, 20, 30}, r.Versions())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, Version(10), r.First())
	assert.Equal(t, Version(30), r.Last())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(desc(10, "a"), desc(20, "b"), desc(10, "other"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateVersion))

	var dup *DuplicateVersionError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, Version(10), dup.Version)
	assert.Equal(t, "10_a", dup.First)
	assert.Equal(t, "10_other", dup.Second)
}

func TestNewRegistryRejectsInvalid(t *testing.T) {
	tt := []struct {
		name   string
		d      Descriptor
		target error
	}{
		{"nil version", Descriptor{Version: NilVersion, Name: "x", Up: "x", Down: "x"}, ErrInvalidVersion},
		{"empty up", Descriptor{Version: 1, Name: "x", Up: "  \n", Down: "x"}, ErrEmptyMigration},
		{"empty down", Descriptor{Version: 1, Name: "x", Up: "x"}, ErrEmptyMigration},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.target))
		})
	}
}

func TestEmptyRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, NilVersion, r.First())
	assert.Equal(t, NilVersion, r.Last())
	assert.Empty(t, r.DescriptorsBetween(NilVersion, 100))
}

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry(desc(10, "a"), desc(20, "b"))
	require.NoError(t, err)

	d, err := r.Lookup(20)
	require.NoError(t, err)
	assert.Equal(t, "b", d.Name)

	_, err = r.Lookup(15)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVersion))
	var unknown *UnknownVersionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, Version(15), unknown.Version)

	_, err = r.Lookup(NilVersion)
	assert.True(t, errors.Is(err, ErrUnknownVersion))
}

func TestRegistryResolve(t *testing.T) {
	r, err := NewRegistry(desc(10, "a"), desc(20, "b"))
	require.NoError(t, err)

	assert.NoError(t, r.Resolve(NilVersion))
	assert.NoError(t, r.Resolve(10))
	assert.True(t, errors.Is(r.Resolve(11), ErrUnknownVersion))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(NilVersion))
}

func TestDescriptorsBetween(t *testing.T) {
	r, err := NewRegistry(desc(10, "a"), desc(20, "b"), desc(30, "c"), desc(40, "d"))
	require.NoError(t, err)

	versions := func(ds []Descriptor) []Version {
		out := []Version{}
		for _, d := range ds {
			out = append(out, d.Version)
		}
		return out
	}

	tt := []struct {
		name      string
		low, high Version
		want      []Version
	}{
		{"from nil to last", NilVersion, 40, []Version{10, 20, 30, 40}},
		{"low is exclusive", 10, 30, []Version{20, 30}},
		{"between registered versions", 15, 35, []Version{20, 30}},
		{"single step", 30, 40, []Version{40}},
		{"equal bounds", 20, 20, []Version{}},
		{"inverted bounds", 40, 10, []Version{}},
		{"past the end", 40, 100, []Version{}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, versions(r.DescriptorsBetween(tc.low, tc.high)))
		})
	}

	assert.Equal(t, []Version{30, 20}, versions(Reverse(r.DescriptorsBetween(10, 30))))
}

func TestRegistryIsReadOnly(t *testing.T) {
	in := []Descriptor{desc(10, "a"), desc(20, "b")}
	r, err := NewRegistry(in...)
	require.NoError(t, err)

	in[0].Name = "changed"
	all := r.All()
	all[1].Up = "changed"
	between := r.DescriptorsBetween(NilVersion, 20)
	between[0].Down = "changed"

	d, err := r.Lookup(10)
	require.NoError(t, err)
	assert.Equal(t, "a", d.Name)
	assert.Equal(t, "DROP TABLE a;", d.Down)
	d, err = r.Lookup(20)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE b (id int);", d.Up)
}
