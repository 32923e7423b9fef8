package commands

import (
	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/internal/store"
	"github.com/aceman-ct/aceman/cli/util"
	"github.com/spf13/cobra"
)

func NewListCmd(ec *cli.ExecutionContext) *cobra.Command {
	opts := &ListOptions{EC: ec}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the logs in the catalog",
		Example: `  # List the first ten logs:
  aceman list -n 10`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.ValidateOutputFormat(opts.Output); err != nil {
				return err
			}
			entries, err := opts.Run(cmd)
			if err != nil {
				return err
			}
			if opts.Output != util.OutputTable {
				return util.WriteStructured(ec.Stdout, opts.Output, entries)
			}
			printLogs(ec, entries)
			return nil
		},
	}
	f := listCmd.Flags()
	f.IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of logs to list (default: all)")
	f.StringVarP(&opts.Output, "output", "o", util.OutputTable, "output format: table, json or yaml")
	return newCatalogCmd(ec, listCmd)
}

type ListOptions struct {
	EC     *cli.ExecutionContext
	Limit  int
	Output string
}

func (o *ListOptions) Run(cmd *cobra.Command) ([]store.LogEntry, error) {
	ctx := cmd.Context()
	s, conn, err := openStore(ctx, o.EC)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return s.ListLogs(ctx, o.Limit)
}

func printLogs(ec *cli.ExecutionContext, entries []store.LogEntry) {
	table := util.NewTableWriter(ec.Stdout, "OPERATOR", "DESCRIPTION", "URL", "STATE")
	for _, e := range entries {
		table.Append([]string{e.Operator, e.Description, e.URL, e.State})
	}
	table.Render()
}
