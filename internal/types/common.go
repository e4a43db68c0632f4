package types

// Operation identifies a long-running operation that may only run once at a time.
type Operation string

const (
	// OperationBackup - creating new snapshots
	OperationBackup Operation = "backuping"

	// OperationRestore - restoring snapshots to their game locations
	OperationRestore Operation = "restoring"

	// OperationMigrate - relocating the backup root
	OperationMigrate Operation = "migrating"

	// OperationUpdateCatalog - refreshing the game catalog database
	OperationUpdateCatalog Operation = "updating_db"

	// OperationExport - packaging snapshots into an archive
	OperationExport Operation = "exporting"
)

// AllOperations lists every guarded operation in display order.
var AllOperations = []Operation{
	OperationBackup,
	OperationRestore,
	OperationMigrate,
	OperationUpdateCatalog,
	OperationExport,
}

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// ProgressID returns the identifier used on progress events for this operation.
func (o Operation) ProgressID() string {
	switch o {
	case OperationMigrate:
		return "migrate-backups"
	case OperationExport:
		return "export"
	case OperationBackup:
		return "backup"
	case OperationRestore:
		return "restore"
	case OperationUpdateCatalog:
		return "update-db"
	default:
		return string(o)
	}
}

// Severity represents the severity of a user-facing alert.
type Severity string

const (
	// SeverityInfo - informational message
	SeverityInfo Severity = "info"

	// SeverityWarning - something went wrong but work continued
	SeverityWarning Severity = "warning"

	// SeverityModal - error that must be acknowledged by the user
	SeverityModal Severity = "modal"

	// SeveritySuccess - operation completed successfully
	SeveritySuccess Severity = "success"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Lifecycle marks the start or end of a progress-tracked operation.
type Lifecycle string

const (
	LifecycleNone  Lifecycle = ""
	LifecycleStart Lifecycle = "start"
	LifecycleEnd   Lifecycle = "end"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// LogLevelDebug - Debug logs (maximum detail)
	LogLevelDebug LogLevel = 5

	// LogLevelInfo - General information
	LogLevelInfo LogLevel = 4

	// LogLevelWarning - Warnings
	LogLevelWarning LogLevel = 3

	// LogLevelError - Errors
	LogLevelError LogLevel = 2

	// LogLevelCritical - Critical errors
	LogLevelCritical LogLevel = 1

	// LogLevelNone - No logs
	LogLevelNone LogLevel = 0
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	case LogLevelCritical:
		return "CRITICAL"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a user supplied string into a LogLevel.
// Unknown values map to LogLevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug", "5":
		return LogLevelDebug
	case "info", "4":
		return LogLevelInfo
	case "warning", "warn", "3":
		return LogLevelWarning
	case "error", "2":
		return LogLevelError
	case "critical", "1":
		return LogLevelCritical
	case "none", "0":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}
