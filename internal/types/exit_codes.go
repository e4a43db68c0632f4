// Package types defines shared application data types.
package types

// ExitCode represents the application's exit codes.
type ExitCode int

const (
	// ExitSuccess - Execution completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGenericError - Unspecified generic error.
	ExitGenericError ExitCode = 1

	// ExitConfigError - Settings or flag error.
	ExitConfigError ExitCode = 2

	// ExitMigrationPartial - Migration committed but some items failed to move.
	ExitMigrationPartial ExitCode = 3

	// ExitArchiveError - Error while building the export manifest or archive.
	ExitArchiveError ExitCode = 4

	// ExitCompressionError - The external compressor failed.
	ExitCompressionError ExitCode = 5

	// ExitDiskSpaceError - Insufficient disk space.
	ExitDiskSpaceError ExitCode = 6

	// ExitBusyError - The requested operation is already running.
	ExitBusyError ExitCode = 7

	// ExitPanicError - Unhandled panic caught.
	ExitPanicError ExitCode = 13
)

// String returns a human-readable description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitGenericError:
		return "generic error"
	case ExitConfigError:
		return "configuration error"
	case ExitMigrationPartial:
		return "migration partially failed"
	case ExitArchiveError:
		return "archive error"
	case ExitCompressionError:
		return "compression error"
	case ExitDiskSpaceError:
		return "disk space error"
	case ExitBusyError:
		return "operation already running"
	case ExitPanicError:
		return "panic error"
	default:
		return "unknown error"
	}
}

// Int returns the exit code as an int.
func (e ExitCode) Int() int {
	return int(e)
}
