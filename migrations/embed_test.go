package migrations

import (
	"strings"
	"testing"

	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r, err := Registry()
	require.NoError(t, err)

	assert.Equal(t, []source.Version{1602334616, 1602335590, 1602336010}, r.Versions())
	for _, d := range r.All() {
		assert.NotEmpty(t, strings.TrimSpace(d.Up), d.String())
		assert.True(t, strings.HasPrefix(strings.TrimSpace(d.Down), "DROP TABLE"), d.String())
	}

	d, err := r.Lookup(1602336010)
	require.NoError(t, err)
	assert.Equal(t, "create_operator_logs", d.Name)
	assert.Contains(t, d.Up, "CREATE TABLE operator_logs")
}

func TestRegistryIsFresh(t *testing.T) {
	a, err := Registry()
	require.NoError(t, err)
	b, err := Registry()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, a.Versions(), b.Versions())
}
