package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tis24dev/savevault/internal/backup"
	"github.com/tis24dev/savevault/internal/cli"
	"github.com/tis24dev/savevault/internal/input"
	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/orchestrator"
	"github.com/tis24dev/savevault/internal/tui/components"
	"github.com/tis24dev/savevault/internal/types"
)

type exportFlags struct {
	count         int
	dest          string
	interactive   bool
	recipients    []string
	passphraseEnv string
	askPassphrase bool
}

var (
	runExportPicker = components.RunExportPicker
	runAlert        = components.RunAlert
	readPassword    = term.ReadPassword
)

func newExportCmd(env *appEnv) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Pack the newest backups of every item into one archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.count < 0 {
				return cli.WithExit(types.ExitConfigError, fmt.Errorf("--count must be at least 1"))
			}
			req := orchestrator.ExportRequest{Count: f.count, Destination: f.dest}

			if f.interactive {
				current := env.store.Get()
				defaults := components.ExportChoice{Count: current.MaxBackups, Destination: current.ExportPath}
				if req.Count > 0 {
					defaults.Count = req.Count
				}
				if req.Destination != "" {
					defaults.Destination = req.Destination
				}
				choice, err := runExportPicker(current.Theme, defaults)
				if err != nil {
					return err
				}
				req.Count, req.Destination = choice.Count, choice.Destination
			}

			recipients, err := f.resolveRecipients(cmd, env.getenv)
			if err != nil {
				return err
			}
			req.Recipients = recipients

			res, err := env.orch.ExportBackups(cmd.Context(), req)
			if f.interactive {
				showExportOutcome(env, res, err)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", res.ArchivePath, humanize.IBytes(uint64(res.Size)))
			fmt.Fprintf(out, "sha256 %s\n", res.SHA256)
			return nil
		},
	}
	cmd.Flags().IntVarP(&f.count, "count", "n", 0, "backups per item (default: maxBackups setting)")
	cmd.Flags().StringVarP(&f.dest, "dest", "d", "", "destination folder (default: exportPath setting)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "pick count and destination in a terminal form")
	cmd.Flags().StringArrayVar(&f.recipients, "age-recipient", nil, "encrypt to this age X25519 recipient (repeatable)")
	cmd.Flags().StringVar(&f.passphraseEnv, "passphrase-env", "", "encrypt with the passphrase stored in this environment variable")
	cmd.Flags().BoolVar(&f.askPassphrase, "passphrase", false, "prompt for an encryption passphrase")
	return cmd
}

// resolveRecipients builds the age recipients from the flags. A passphrase
// cannot be combined with public-key recipients.
func (f *exportFlags) resolveRecipients(cmd *cobra.Command, getenv func(string) string) ([]age.Recipient, error) {
	usePassphrase := f.passphraseEnv != "" || f.askPassphrase
	if usePassphrase && len(f.recipients) > 0 {
		return nil, cli.WithExit(types.ExitConfigError, errors.New("a passphrase cannot be combined with --age-recipient"))
	}

	if len(f.recipients) > 0 {
		recipients, err := backup.ParseRecipients(f.recipients)
		if err != nil {
			return nil, cli.WithExit(types.ExitConfigError, err)
		}
		return recipients, nil
	}
	if !usePassphrase {
		return nil, nil
	}

	var passphrase string
	if f.passphraseEnv != "" {
		passphrase = strings.TrimSpace(getenv(f.passphraseEnv))
		if passphrase == "" {
			return nil, cli.WithExit(types.ExitConfigError, fmt.Errorf("environment variable %s is empty", f.passphraseEnv))
		}
	} else {
		stdin, ok := cmd.InOrStdin().(*os.File)
		if !ok || !term.IsTerminal(int(stdin.Fd())) {
			return nil, cli.WithExit(types.ExitConfigError, errors.New("--passphrase needs an interactive terminal; use --passphrase-env"))
		}
		p, err := input.ReadPassphrase(cmd.Context(), readPassword, int(stdin.Fd()), cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		passphrase = p
	}

	r, err := backup.PassphraseRecipient(passphrase)
	if err != nil {
		return nil, err
	}
	return []age.Recipient{r}, nil
}

// showExportOutcome repeats the export result in a dialog for interactive runs.
func showExportOutcome(env *appEnv, res *backup.ExportResult, exportErr error) {
	alert := notify.Alert{Severity: types.SeveritySuccess, Title: orchestrator.AlertExportSuccess}
	if exportErr != nil {
		alert = notify.Alert{Severity: types.SeverityModal, Title: orchestrator.AlertExportFailure, Detail: exportErr.Error()}
	} else {
		alert.Detail = fmt.Sprintf("%s (%s)", res.ArchivePath, humanize.IBytes(uint64(res.Size)))
	}
	if err := runAlert(env.store.Get().Theme, alert); err != nil {
		env.logger.Warning("Cannot show export result: %v", err)
	}
}
