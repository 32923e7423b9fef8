package commands

import (
	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/internal/ctlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewSyncCmd(ec *cli.ExecutionContext) *cobra.Command {
	var logList string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Load operators and logs from a log list file into the catalog",
		Example: `  # Sync from a downloaded log list:
  aceman sync --log-list log_list.json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := ctlog.ReadFile(logList)
			if err != nil {
				return err
			}
			s, conn, err := openStore(ctx, ec)
			if err != nil {
				return err
			}
			defer conn.Close()

			ec.Spin("Syncing log list...")
			res, err := s.SyncOperators(ctx, list.Operators)
			ec.Spinner.Stop()
			if err != nil {
				return errors.Wrap(err, "sync failed")
			}
			ec.Logger.WithFields(logrus.Fields{
				"operators":    res.Operators,
				"emails":       res.Emails,
				"logs":         res.Logs,
				"updated_logs": res.UpdatedLogs,
			}).Infof("synced %d logs from %s", list.LogCount(), logList)
			return nil
		},
	}
	syncCmd.Flags().StringVar(&logList, "log-list", "", "path to a log list JSON file")
	_ = syncCmd.MarkFlagRequired("log-list")
	return newCatalogCmd(ec, syncCmd)
}
