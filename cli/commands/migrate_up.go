package commands

import (
	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMigrateUpCmd(ec *cli.ExecutionContext) *cobra.Command {
	opts := &MigrateUpOptions{EC: ec}
	migrateUpCmd := &cobra.Command{
		Use:   "up [version]",
		Short: "Apply pending migrations, up to version if given",
		Example: `  # Apply all pending migrations:
  aceman db migrate up

  # Apply migrations up to and including a version:
  aceman db migrate up 1602335590`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v, err := source.ParseVersion(args[0])
				if err != nil {
					return errors.Wrapf(err, "invalid target version %q", args[0])
				}
				opts.Target = &v
			}
			return opts.Run(cmd)
		},
	}
	return migrateUpCmd
}

type MigrateUpOptions struct {
	EC *cli.ExecutionContext
	// Target is nil to migrate to the latest version.
	Target *source.Version
}

func (o *MigrateUpOptions) Run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	runner, conn, err := openRunner(ctx, o.EC)
	if err != nil {
		return err
	}
	defer conn.Close()

	o.EC.Spin("Applying migrations...")
	res, err := runner.MigrateUpToVersion(ctx, o.Target)
	o.EC.Spinner.Stop()
	o.EC.PushMetrics(ctx)
	return runError(res, err)
}
