// Package commands contains the definition for all the commands present in
// aceman.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/aceman-ct/aceman/migrations"
	"github.com/spf13/cobra"
)

const acemanASCIIText = `
   __ _  ___ ___ _ __ ___   __ _ _ __
  / _` + "`" + ` |/ __/ _ \ '_ ` + "`" + ` _ \ / _` + "`" + ` | '_ \
 | (_| | (_|  __/ | | | | | (_| | | | |
  \__,_|\___\___|_| |_| |_|\__,_|_| |_|

`

// EC is the Execution Context for the current run.
var EC *cli.ExecutionContext

// migrationsRegistry supplies the migrations the runner applies.
var migrationsRegistry func() (*source.Registry, error) = migrations.Registry

// rootCmd is the main "aceman" command
var rootCmd *cobra.Command

func init() {
	EC = cli.NewExecutionContext()
	rootCmd = NewRootCmd(EC)
}

// NewRootCmd returns the aceman command tree bound to ec.
func NewRootCmd(ec *cli.ExecutionContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aceman",
		Short:         "Certificate Transparency log catalog",
		Long:          acemanASCIIText,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ec.Prepare()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(
		NewDatabaseCmd(ec),
		NewListCmd(ec),
		NewSyncCmd(ec),
		NewVersionCmd(ec),
	)
	f := cmd.PersistentFlags()
	f.StringVar(&ec.LogLevel, "log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR, FATAL)")
	f.StringVar(&ec.ExecutionDirectory, "project", "", "directory where commands are executed (default: current dir)")
	f.StringVar(&ec.Envfile, "envfile", ".env", ".env filename to load ENV vars from")
	f.BoolVar(&ec.NoColor, "no-color", false, "do not colorize output (default: false)")
	return cmd
}

// Execute executes the command and returns the error
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if EC.Spinner != nil {
		EC.Spinner.Stop()
	}
	return err
}

// prepareWith runs the root hooks and then reads the config for commands
// that talk to the database.
func prepareWith(ec *cli.ExecutionContext, cmd *cobra.Command, args []string) error {
	if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
		return err
	}
	return ec.Validate()
}
