package migrations

import (
	"embed"

	"github.com/aceman-ct/aceman/cli/migrate/source"
)

//go:embed *.sql
var FS embed.FS

// Registry returns the embedded migrations. Each call builds a new value.
func Registry() (*source.Registry, error) {
	return source.Load(FS, ".")
}
