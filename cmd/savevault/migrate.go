package main

import (
	"bufio"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/cli"
	"github.com/tis24dev/savevault/internal/input"
	"github.com/tis24dev/savevault/internal/tui/components"
	"github.com/tis24dev/savevault/internal/types"
)

var runConfirm = components.RunConfirm

func newMigrateCmd(env *appEnv) *cobra.Command {
	var assumeYes, interactive, copyOnly bool

	cmd := &cobra.Command{
		Use:   "migrate <dest>",
		Short: "Move the backup folder to a new location",
		Long: "Moves every backup from the configured backup folder to <dest> and makes <dest> " +
			"the new backup folder. Items that fail to move are reported; the new location is " +
			"kept even when some items failed. With --copy the old folder is left in place and " +
			"the new location is used only if the copy succeeds.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[0]
			src := env.store.Get().BackupPath

			if !assumeYes {
				verb := "Move"
				if copyOnly {
					verb = "Copy"
				}
				question := fmt.Sprintf("%s backups from %s to %s?", verb, src, dest)
				var (
					ok  bool
					err error
				)
				if interactive {
					ok, err = runConfirm(env.store.Get().Theme, "Migrate Backups", question)
				} else {
					ok, err = input.Confirm(cmd.Context(), bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), question, false)
				}
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Migration cancelled")
					return nil
				}
			}

			if copyOnly {
				if err := env.orch.CopyBackups(cmd.Context(), dest); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied backups; backup folder is now %s\n", env.store.Get().BackupPath)
				return nil
			}

			res, err := env.orch.MigrateBackups(cmd.Context(), dest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.SourceExisted {
				fmt.Fprintf(out, "Nothing to move; backup folder is now %s\n", dest)
				return nil
			}
			fmt.Fprintf(out, "Moved %d files (%s of %s) to %s\n", res.Files,
				humanize.IBytes(uint64(res.MovedBytes)), humanize.IBytes(uint64(res.TotalBytes)), dest)
			if !res.OK() {
				for _, msg := range res.Messages() {
					fmt.Fprintln(out, "  "+msg)
				}
				return cli.WithExit(types.ExitMigrationPartial, fmt.Errorf("%d items could not be moved", len(res.Errors)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "confirm in a terminal dialog")
	cmd.Flags().BoolVar(&env.keepFailed, "keep-failed", false, "leave source folders that still hold unmoved files")
	cmd.Flags().BoolVar(&copyOnly, "copy", false, "copy instead of move, keeping the old folder")
	cmd.MarkFlagsMutuallyExclusive("copy", "keep-failed")
	return cmd
}
