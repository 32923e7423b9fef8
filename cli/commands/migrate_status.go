package commands

import (
	"fmt"
	"io"

	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/migrate"
	"github.com/aceman-ct/aceman/cli/util"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMigrateStatusCmd(ec *cli.ExecutionContext) *cobra.Command {
	opts := &MigrateStatusOptions{EC: ec}
	migrateStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Display current status of migrations on the database",
		Example: `  # Show migration status:
  aceman db migrate status

  # As JSON:
  aceman db migrate status --output json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return util.ValidateOutputFormat(opts.Output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.Run(cmd)
			if err != nil {
				return err
			}
			if opts.Output != util.OutputTable {
				return util.WriteStructured(ec.Stdout, opts.Output, status)
			}
			printStatus(ec, status)
			return nil
		},
	}
	migrateStatusCmd.Flags().StringVarP(&opts.Output, "output", "o", util.OutputTable, "output format: table, json or yaml")
	return migrateStatusCmd
}

type MigrateStatusOptions struct {
	EC     *cli.ExecutionContext
	Output string
}

func (o *MigrateStatusOptions) Run(cmd *cobra.Command) (*migrate.Status, error) {
	ctx := cmd.Context()
	runner, conn, err := openRunner(ctx, o.EC)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	o.EC.Spin("Fetching migration status...")
	defer o.EC.Spinner.Stop()
	return runner.Status(ctx)
}

func printStatus(ec *cli.ExecutionContext, status *migrate.Status) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	if ec.NoColor || !ec.IsTerminal {
		for _, c := range []*color.Color{green, yellow, red} {
			c.DisableColor()
		}
	}

	table := util.NewTableWriter(ec.Stdout, "VERSION", "NAME", "SOURCE STATUS", "DATABASE STATUS")
	for _, m := range status.List() {
		table.Append([]string{
			m.Version.String(),
			m.Name,
			presence(m.IsPresent, green, red),
			application(m.IsApplied, green, yellow),
		})
	}
	table.Render()
	printSummary(ec.Stdout, status, red)
}

func presence(ok bool, yes, no *color.Color) string {
	if ok {
		return yes.Sprint("Present")
	}
	return no.Sprint("Not Present")
}

func application(ok bool, yes, no *color.Color) string {
	if ok {
		return yes.Sprint("Applied")
	}
	return no.Sprint("Not Applied")
}

func printSummary(w io.Writer, status *migrate.Status, warn *color.Color) {
	fmt.Fprintf(w, "\ncurrent version: %s, pending: %d\n", status.Current, status.Pending())
	if !status.Consistent {
		fmt.Fprintln(w, warn.Sprint("the migrations table is inconsistent with the migrations in this binary"))
	}
}
