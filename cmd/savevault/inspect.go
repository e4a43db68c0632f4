package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/backup"
	"github.com/tis24dev/savevault/internal/checks"
	"github.com/tis24dev/savevault/internal/fsops"
	"github.com/tis24dev/savevault/internal/placeholder"
)

func newResolveCmd(env *appEnv) *cobra.Command {
	var compact, decompact bool

	cmd := &cobra.Command{
		Use:   "resolve <template>",
		Short: "Expand the path placeholders in a save location template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := placeholder.Default()
			out := cmd.OutOrStdout()
			switch {
			case compact:
				fmt.Fprintln(out, r.Compact(args[0]))
			case decompact:
				fmt.Fprintln(out, r.Decompact(args[0]))
			default:
				expanded, missing := r.Expand(args[0])
				fmt.Fprintln(out, expanded)
				if len(missing) > 0 {
					env.logger.Warning("Unresolved placeholders on this system: %s", strings.Join(missing, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "replace placeholders with their short identifiers")
	cmd.Flags().BoolVar(&decompact, "decompact", false, "replace short identifiers with their placeholders")
	cmd.MarkFlagsMutuallyExclusive("compact", "decompact")
	return cmd
}

func newNewestCmd(env *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "newest <item-id>",
		Short: "Print the most recent backup of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, when, err := backup.NewestSnapshot(env.store.Get().BackupPath, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if when.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", name, humanize.Time(when))
			return nil
		},
	}
}

func newVerifyCmd(env *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check an export archive against its recorded checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := backup.VerifyExport(cmd.Context(), env.logger, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: OK\n", args[0])
			if manifest == nil {
				return nil
			}
			fmt.Fprintf(out, "%d snapshots, %d per item, created %s\n",
				manifest.SnapshotCount, manifest.PerItem, manifest.CreatedAt.Format(time.RFC3339))
			if manifest.EncryptionMode != "" {
				fmt.Fprintf(out, "encryption: %s\n", manifest.EncryptionMode)
			}
			return nil
		},
	}
}

func newSizeCmd(env *appEnv) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "size <path>",
		Short: "Print the size of a file or folder",
		Long: "Prints the size of a file or folder. Backup metadata files are not counted " +
			"unless --all is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct := fsops.NewAccountant(env.logger, fsops.DefaultFSTimeout)
			n := acct.Size(cmd.Context(), args[0], !all)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", humanize.IBytes(uint64(n)), n, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include backup metadata files")
	return cmd
}

func newFixPermissionsCmd(env *appEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-permissions <path>",
		Short: "Make every file under path writable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := fsops.EnsureWritable(env.logger, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%d files made writable, %d failed\n", report.Changed, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d files could not be made writable", report.Failed)
			}
			return nil
		},
	}
}

func newStatusCmd(env *appEnv) *cobra.Command {
	var minFree string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show running operations and check the backup folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			need, err := humanize.ParseBytes(minFree)
			if err != nil {
				return fmt.Errorf("--min-free: %w", err)
			}
			current := env.store.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "settings: %s\n", env.store.Path())
			if key, ok := placeholder.CurrentPlatformKey(); ok {
				fmt.Fprintf(out, "platform: %s\n", key)
			}
			fmt.Fprintf(out, "backups:  %s\n", current.BackupPath)
			fmt.Fprintf(out, "exports:  %s\n", current.ExportPath)
			fmt.Fprintf(out, "activity: %s\n", env.orch.StatusLine())

			checker := checks.NewChecker(env.logger, &checks.CheckerConfig{
				BackupPath:   current.BackupPath,
				ExportPath:   current.ExportPath,
				MinFreeBytes: need,
			})
			results, err := checker.RunAllChecks(cmd.Context())
			for _, r := range results {
				state := "ok"
				switch {
				case !r.Passed:
					state = "FAIL"
				case r.Warning:
					state = "warn"
				}
				fmt.Fprintf(out, "[%s] %s: %s\n", state, r.Name, r.Message)
			}
			if err != nil {
				fmt.Fprintf(out, "[FAIL] %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&minFree, "min-free", "1GiB", "warn when less space than this is free")
	return cmd
}
