package fsops

import (
	"os"
	"path/filepath"

	"github.com/tis24dev/savevault/internal/logging"
)

const (
	fileModeSymlink = os.ModeSymlink
	ownerWriteBit   = 0o200
	writableMode    = 0o666
)

var osChmod = os.Chmod

// WritableReport summarizes an EnsureWritable pass.
type WritableReport struct {
	Changed int
	Failed  int
}

// EnsureWritable makes every regular file under path writable.
// Files missing the owner-write bit are switched to 0666. Missing paths are a
// no-op and chmod failures are logged without interrupting the traversal.
func EnsureWritable(logger *logging.Logger, path string) WritableReport {
	logger = logging.OrDefault(logger)
	var report WritableReport
	ensureWritable(logger, path, &report)
	return report
}

func ensureWritable(logger *logging.Logger, path string, report *WritableReport) {
	info, err := os.Lstat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warning("Cannot inspect %s: %v", path, err)
			report.Failed++
		}
		return
	}

	switch {
	case info.Mode()&fileModeSymlink != 0:
		return
	case info.IsDir():
		entries, err := os.ReadDir(path)
		if err != nil {
			logger.Warning("Cannot list %s: %v", path, err)
			report.Failed++
			return
		}
		for _, entry := range entries {
			ensureWritable(logger, filepath.Join(path, entry.Name()), report)
		}
	default:
		if info.Mode().Perm()&ownerWriteBit != 0 {
			return
		}
		if err := osChmod(path, writableMode); err != nil {
			logger.Warning("Cannot change permissions for %s: %v", path, err)
			report.Failed++
			return
		}
		logger.Debug("Changed permissions for file: %s", path)
		report.Changed++
	}
}
