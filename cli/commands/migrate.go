package commands

import (
	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/migrate"
	"github.com/aceman-ct/aceman/cli/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewMigrateCmd returns the migrate command
func NewMigrateCmd(ec *cli.ExecutionContext, v *viper.Viper) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage migrations on the database",
		SilenceUsage: true,
	}

	f := migrateCmd.PersistentFlags()
	f.String("migrations-table", "", "name of the table recording applied migrations (default \"schema_migrations\")")
	f.String("migrations-schema", "", "postgres schema of the migrations table (default \"public\")")
	f.Duration("lock-timeout", 0, "how long to wait for another migration run to finish (default 15s)")
	f.String("pushgateway-url", "", "prometheus pushgateway to push run metrics to")

	util.BindPFlags(v, f, util.FlagBindings{
		"migrations.table":  "migrations-table",
		"migrations.schema": "migrations-schema",
		"lock_timeout":      "lock-timeout",
		"pushgateway_url":   "pushgateway-url",
	})

	migrateCmd.AddCommand(
		newMigrateUpCmd(ec),
		newMigrateDownCmd(ec),
		newMigrateStatusCmd(ec),
		newMigrateCreateCmd(ec),
	)
	return migrateCmd
}

// runError adds the version a failed run stopped at.
func runError(res *migrate.Result, err error) error {
	if err == nil {
		return nil
	}
	if res == nil {
		return err
	}
	return errors.Wrapf(err, "migrate %s stopped at version %s", res.Direction, res.To)
}
