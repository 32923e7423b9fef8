package commands

import (
	"fmt"

	"github.com/aceman-ct/aceman/cli"
	"github.com/spf13/cobra"
)

// NewVersionCmd returns the version command
func NewVersionCmd(ec *cli.ExecutionContext) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:          "version",
		Short:        "Print the CLI version and the schema version it carries",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if registry, err := migrationsRegistry(); err == nil {
				ec.Version.Schema = registry.Last()
			} else {
				ec.Logger.WithError(err).Debug("cannot load migrations")
			}
			fmt.Fprintln(ec.Stdout, "aceman version:", ec.Version.GetCLIVersion())
			fmt.Fprintln(ec.Stdout, "schema version:", ec.Version.Schema)
			if !ec.Version.IsStableRelease() {
				fmt.Fprintln(ec.Stdout, "this is not a stable release")
			}
			return nil
		},
	}
	return versionCmd
}
