package database_test

import (
	"testing"

	"github.com/aceman-ct/aceman/cli/migrate/database"
	_ "github.com/aceman-ct/aceman/cli/migrate/database/postgres"
	_ "github.com/aceman-ct/aceman/cli/migrate/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownDriverListsRegistered(t *testing.T) {
	_, err := database.Get("mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver mysql")
	for _, name := range database.Dialects() {
		assert.Contains(t, err.Error(), name)
	}
	assert.Contains(t, database.Dialects(), "sqlite")
	assert.Contains(t, database.Dialects(), "postgres")
}
