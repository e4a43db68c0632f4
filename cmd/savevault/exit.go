package main

import (
	"context"
	"errors"

	"github.com/tis24dev/savevault/internal/backup"
	"github.com/tis24dev/savevault/internal/cli"
	"github.com/tis24dev/savevault/internal/config"
	"github.com/tis24dev/savevault/internal/input"
	"github.com/tis24dev/savevault/internal/orchestrator"
	"github.com/tis24dev/savevault/internal/tui/components"
	"github.com/tis24dev/savevault/internal/types"
)

// exitCodeFor maps a command error to the process exit status.
func exitCodeFor(err error) int {
	var ee *cli.ExitError
	var ce *backup.CompressionError
	switch {
	case err == nil:
		return types.ExitSuccess.Int()
	case errors.As(err, &ee):
		return ee.ExitCode()
	case errors.Is(err, context.Canceled), input.IsAborted(err), errors.Is(err, components.ErrPickerCancelled):
		return exitCodeInterrupted
	case errors.Is(err, orchestrator.ErrBusy):
		return types.ExitBusyError.Int()
	case errors.As(err, &ce), errors.Is(err, backup.ErrSevenZipNotFound):
		return types.ExitCompressionError.Int()
	case errors.Is(err, backup.ErrNoSnapshots), errors.Is(err, backup.ErrChecksumMismatch):
		return types.ExitArchiveError.Int()
	case errors.Is(err, config.ErrUnknownKey), errors.Is(err, config.ErrInvalidValue):
		return types.ExitConfigError.Int()
	default:
		return types.ExitGenericError.Int()
	}
}
