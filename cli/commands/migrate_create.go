package commands

import (
	"time"

	"github.com/aceman-ct/aceman/cli"
	mig "github.com/aceman-ct/aceman/cli/migrate/cmd"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newMigrateCreateCmd(ec *cli.ExecutionContext) *cobra.Command {
	opts := &migrateCreateOptions{EC: ec}
	migrateCreateCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create up and down SQL files for a new migration",
		Long:  "Create up and down SQL files in the migrations directory. The files are compiled into the binary on the next build.",
		Example: `  # Create empty migration files:
  aceman db migrate create create_operator_tags

  # Fill the up and down files:
  aceman db migrate create add_log_index --up-sql "CREATE INDEX logs_state ON logs (state);" --down-sql "DROP INDEX logs_state;"

  # Read the up SQL from a file:
  aceman db migrate create add_log_index --sql-from-file add_log_index.sql`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.name = args[0]
			if opts.version == 0 {
				opts.version = uint64(time.Now().Unix())
			}
			files, err := opts.run()
			if err != nil {
				return err
			}
			ec.Logger.WithField("version", source.Version(opts.version).String()).Info("migration files created")
			for _, f := range files {
				ec.Logger.Info(f)
			}
			return nil
		},
	}

	f := migrateCreateCmd.Flags()
	f.StringVar(&opts.upSQL, "up-sql", "", "sql to write to the up file")
	f.StringVar(&opts.downSQL, "down-sql", "", "sql to write to the down file")
	f.StringVar(&opts.sqlFile, "sql-from-file", "", "path to a sql file used as the up migration")
	f.Uint64Var(&opts.version, "version", 0, "version of the migration (default: current unix timestamp)")
	return migrateCreateCmd
}

type migrateCreateOptions struct {
	EC *cli.ExecutionContext

	name    string
	version uint64
	upSQL   string
	downSQL string
	sqlFile string
}

func (o *migrateCreateOptions) run() ([]string, error) {
	if o.upSQL != "" && o.sqlFile != "" {
		return nil, errors.New("only one of --up-sql or --sql-from-file can be set")
	}
	c := mig.New(o.EC.Fs, source.Version(o.version), o.name, o.EC.MigrationsDirectory())
	up := o.upSQL
	if o.sqlFile != "" {
		b, err := afero.ReadFile(o.EC.Fs, o.sqlFile)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read sql file")
		}
		up = string(b)
	}
	if err := c.SetSQLUp(up); err != nil {
		return nil, err
	}
	if err := c.SetSQLDown(o.downSQL); err != nil {
		return nil, err
	}
	return c.Create()
}
