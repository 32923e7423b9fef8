package commands

import (
	"context"

	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/internal/db"
	"github.com/aceman-ct/aceman/cli/migrate"
	"github.com/aceman-ct/aceman/cli/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NewDatabaseCmd returns the database command
func NewDatabaseCmd(ec *cli.ExecutionContext) *cobra.Command {
	v := viper.New()
	databaseCmd := &cobra.Command{
		Use:          "database",
		Aliases:      []string{"db"},
		Short:        "Perform database operations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = v
			return prepareWith(ec, cmd, args)
		},
	}
	addDatabaseFlags(databaseCmd.PersistentFlags(), v)
	databaseCmd.AddCommand(NewMigrateCmd(ec, v))
	return databaseCmd
}

// addDatabaseFlags adds the connection flags shared by every command that
// opens the database.
func addDatabaseFlags(f *pflag.FlagSet, v *viper.Viper) {
	f.String("database-url", "", "database url, postgres://... or sqlite://<path> (default \""+cli.DefaultDatabaseURL+"\")")
	f.String("database-driver", "", "driver for postgres urls, postgres (lib/pq) or pgx")
	f.Int("max-open-conns", 0, "maximum number of open database connections (default 5)")

	util.BindPFlags(v, f, util.FlagBindings{
		"database_url":    "database-url",
		"database_driver": "database-driver",
		"max_open_conns":  "max-open-conns",
	})
	f.Lookup("database-url").Usage += ` (env "POSTGRES_URL")`
}

// openRunner loads the embedded migrations and connects to the database.
// The caller closes the returned database.
func openRunner(ctx context.Context, ec *cli.ExecutionContext) (*migrate.Runner, *db.DB, error) {
	registry, err := migrationsRegistry()
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot load migrations")
	}
	conn, err := ec.OpenDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}
	runner, err := migrate.NewRunner(registry, conn.DB, conn.Dialect,
		migrate.WithLogger(ec.Logger),
		migrate.WithConfig(ec.LedgerConfig()),
		migrate.WithMetrics(ec.Metrics),
	)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return runner, conn, nil
}
