package commands

import (
	"fmt"

	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/aceman-ct/aceman/cli/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMigrateDownCmd(ec *cli.ExecutionContext) *cobra.Command {
	opts := &MigrateDownOptions{EC: ec}
	migrateDownCmd := &cobra.Command{
		Use:   "down <version>",
		Short: "Roll back migrations above version",
		Long:  "Roll back every applied migration above version. Use \"none\" or 0 to roll back all of them.",
		Example: `  # Keep the first two migrations:
  aceman db migrate down 1602335590

  # Roll back everything without asking:
  aceman db migrate down none --yes`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := source.ParseVersion(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid target version %q", args[0])
			}
			opts.Target = v
			return opts.Run(cmd)
		},
	}
	migrateDownCmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")
	return migrateDownCmd
}

type MigrateDownOptions struct {
	EC     *cli.ExecutionContext
	Target source.Version
	Yes    bool
}

func (o *MigrateDownOptions) Run(cmd *cobra.Command) error {
	if !o.Yes {
		if !o.EC.IsTerminal {
			return errors.New("refusing to roll back without a terminal, pass --yes to confirm")
		}
		ok, err := util.Confirm(fmt.Sprintf("Roll back all migrations above %s", o.Target))
		if err != nil {
			return err
		}
		if !ok {
			o.EC.Logger.Info("aborted")
			return nil
		}
	}

	ctx := cmd.Context()
	runner, conn, err := openRunner(ctx, o.EC)
	if err != nil {
		return err
	}
	defer conn.Close()

	o.EC.Spin("Rolling back migrations...")
	res, err := runner.MigrateDownToVersion(ctx, o.Target)
	o.EC.Spinner.Stop()
	o.EC.PushMetrics(ctx)
	return runError(res, err)
}
