package util

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindPFlags(t *testing.T) {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("database-url", "", "database connection url")
	f.String("migrations-table", "", "ledger table")
	v := viper.New()

	BindPFlags(v, f, FlagBindings{
		"database_url":     "database-url",
		"migrations.table": "migrations-table",
		"missing":          "no-such-flag",
	})
	assert.Equal(t, `database connection url (env "ACEMAN_DATABASE_URL")`, f.Lookup("database-url").Usage)
	assert.Equal(t, `ledger table (env "ACEMAN_MIGRATIONS_TABLE")`, f.Lookup("migrations-table").Usage)

	require.NoError(t, f.Parse([]string{"--database-url", "sqlite://aceman.db", "--migrations-table", "ledger"}))
	assert.Equal(t, "sqlite://aceman.db", v.GetString("database_url"))
	assert.Equal(t, "ledger", v.GetString("migrations.table"))
	assert.Empty(t, v.GetString("missing"))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ACEMAN_LOCK_TIMEOUT", EnvName("lock_timeout"))
	assert.Equal(t, "ACEMAN_MIGRATIONS_SCHEMA", EnvName("migrations.schema"))
}

func TestNewTableWriter(t *testing.T) {
	var buf bytes.Buffer
	table := NewTableWriter(&buf, "version", "name")
	table.Append([]string{"1602334616", "create_operators_with_a_rather_long_name"})
	table.Render()
	assert.Contains(t, buf.String(), "VERSION")
	assert.Contains(t, buf.String(), "create_operators_with_a_rather_long_name")
}

func TestWriteStructured(t *testing.T) {
	v := struct {
		Version uint64 `json:"version"`
		Name    string `json:"name"`
	}{1602334616, "create_operators"}

	var buf bytes.Buffer
	require.NoError(t, WriteStructured(&buf, OutputJSON, v))
	assert.JSONEq(t, `{"version":1602334616,"name":"create_operators"}`, buf.String())

	buf.Reset()
	require.NoError(t, WriteStructured(&buf, OutputYAML, v))
	assert.Equal(t, "name: create_operators\nversion: 1602334616\n", buf.String())

	assert.Error(t, WriteStructured(&buf, "xml", v))
	assert.NoError(t, ValidateOutputFormat(OutputTable))
	assert.Error(t, ValidateOutputFormat("csv"))
}
