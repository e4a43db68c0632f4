package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/types"
	"github.com/tis24dev/savevault/internal/version"
)

func newVersionCmd() *cobra.Command {
	var latest string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No settings are needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "savevault %s\n", version.Full())
			fmt.Fprintf(out, "go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			if latest == "" {
				return nil
			}

			logger := logging.New(types.LogLevelInfo, false)
			logger.SetOutput(cmd.ErrOrStderr())
			_, newer, err := version.CheckForUpdate(cmd.Context(), version.FixedSource(latest), version.String(), notify.NewLogSink(logger))
			if err != nil {
				return err
			}
			if !newer {
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&latest, "latest", "", "compare against this published version")
	return cmd
}
