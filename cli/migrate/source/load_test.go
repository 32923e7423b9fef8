package source

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/1602335590_create_operator_emails.up.sql":   {Data: []byte("CREATE TABLE operator_emails (id int);")},
		"migrations/1602335590_create_operator_emails.down.sql": {Data: []byte("DROP TABLE operator_emails;")},
		"migrations/1602334616_create_operators.up.sql":         {Data: []byte("CREATE TABLE operators (id int);")},
		"migrations/1602334616_create_operators.down.sql":       {Data: []byte("DROP TABLE operators;")},
		"migrations/embed.go":                                   {Data: []byte("package migrations")},
		"migrations/README.md":                                  {Data: []byte("docs")},
		"migrations/nested/1602336010_ignored.up.sql":           {Data: []byte("SELECT 1;")},
	}

	r, err := Load(fsys, "migrations")
	require.NoError(t, err)
	require.Equal(t, []Version{1602334616, 1602335590}, r.Versions())

	d, err := r.Lookup(1602334616)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{
		Version: 1602334616,
		Name:    "create_operators",
		Up:      "CREATE TABLE operators (id int);",
		Down:    "DROP TABLE operators;",
	}, d)
}

func TestLoadErrors(t *testing.T) {
	tt := []struct {
		name   string
		fsys   fstest.MapFS
		target error
	}{
		{
			name: "missing down",
			fsys: fstest.MapFS{
				"1_a.up.sql": {Data: []byte("SELECT 1;")},
			},
			target: ErrIncomplete,
		},
		{
			name: "missing up",
			fsys: fstest.MapFS{
				"1_a.down.sql": {Data: []byte("SELECT 1;")},
			},
			target: ErrIncomplete,
		},
		{
			name: "same version different names",
			fsys: fstest.MapFS{
				"1_a.up.sql":   {Data: []byte("SELECT 1;")},
				"1_a.down.sql": {Data: []byte("SELECT 1;")},
				"1_b.up.sql":   {Data: []byte("SELECT 1;")},
				"1_b.down.sql": {Data: []byte("SELECT 1;")},
			},
			target: ErrDuplicateVersion,
		},
		{
			name: "mixed widths",
			fsys: fstest.MapFS{
				"9_a.up.sql":    {Data: []byte("SELECT 1;")},
				"9_a.down.sql":  {Data: []byte("SELECT 1;")},
				"10_b.up.sql":   {Data: []byte("SELECT 1;")},
				"10_b.down.sql": {Data: []byte("SELECT 1;")},
			},
			target: ErrInvalidVersion,
		},
		{
			name: "empty file",
			fsys: fstest.MapFS{
				"1_a.up.sql":   {Data: []byte("")},
				"1_a.down.sql": {Data: []byte("SELECT 1;")},
			},
			target: ErrEmptyMigration,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.fsys, ".")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.target), err.Error())
		})
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(fstest.MapFS{}, "nope")
	require.Error(t, err)
}
