package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/cli"
	"github.com/tis24dev/savevault/internal/orchestrator"
	"github.com/tis24dev/savevault/internal/storage"
	"github.com/tis24dev/savevault/internal/types"
)

func newPruneCmd(env *appEnv) *cobra.Command {
	var (
		req orchestrator.PruneRequest
		gfs bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old backups beyond the retention policy",
		Long: "Keeps the newest --keep backups of every item (default: maxBackups setting). " +
			"With --gfs, keeps --daily newest backups plus one per week, month and year.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gfs {
				req.Retention.Policy = storage.PolicyGFS
			}
			if err := req.Retention.Validate(); err != nil {
				return cli.WithExit(types.ExitConfigError, err)
			}
			summary, err := env.orch.PruneBackups(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			verb := "deleted"
			if summary.DryRun {
				verb = "would delete"
			}
			for _, p := range summary.Removed {
				fmt.Fprintf(out, "%s %s\n", verb, p)
			}
			fmt.Fprintf(out, "%d items, %d backups kept, %d %s\n", summary.Items, summary.Kept, len(summary.Removed), verb)
			if summary.Failed > 0 {
				return fmt.Errorf("%d backups could not be deleted", summary.Failed)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&req.DryRun, "dry-run", false, "only list what would be deleted")
	f.IntVar(&req.Retention.MaxBackups, "keep", 0, "backups kept per item (default: maxBackups setting)")
	f.BoolVar(&gfs, "gfs", false, "use daily/weekly/monthly/yearly retention")
	f.IntVar(&req.Retention.Daily, "daily", 7, "GFS: newest backups kept")
	f.IntVar(&req.Retention.Weekly, "weekly", 4, "GFS: weeks with one backup kept")
	f.IntVar(&req.Retention.Monthly, "monthly", 6, "GFS: months with one backup kept")
	f.IntVar(&req.Retention.Yearly, "yearly", 0, "GFS: years with one backup kept (0 keeps all)")
	cmd.MarkFlagsMutuallyExclusive("keep", "gfs")
	return cmd
}
