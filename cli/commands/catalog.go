package commands

import (
	"context"

	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/internal/db"
	"github.com/aceman-ct/aceman/cli/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errSchemaNotCurrent = errors.New("database schema is not up to date, run \"aceman db migrate up\" first")

// newCatalogCmd builds a command that reads or writes the log catalog. It
// gets its own database flags since it does not live under "database".
func newCatalogCmd(ec *cli.ExecutionContext, cmd *cobra.Command) *cobra.Command {
	v := viper.New()
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		ec.Viper = v
		return ec.Validate()
	}
	addDatabaseFlags(cmd.Flags(), v)
	return cmd
}

// openStore connects to the database and checks that every migration of
// this binary is applied.
func openStore(ctx context.Context, ec *cli.ExecutionContext) (*store.Store, *db.DB, error) {
	runner, conn, err := openRunner(ctx, ec)
	if err != nil {
		return nil, nil, err
	}
	status, err := runner.Status(ctx)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if !status.Consistent || status.Pending() > 0 {
		conn.Close()
		return nil, nil, errors.Wrapf(errSchemaNotCurrent, "schema is at version %s", status.Current)
	}
	return store.New(conn.DB, conn.Dialect, ec.Logger), conn, nil
}
