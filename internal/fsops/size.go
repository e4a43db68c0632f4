// Package fsops holds the recursive filesystem helpers shared by backup,
// migration and export: size accounting, permission normalization and plain
// tree copies.
package fsops

import (
	"context"
	"path/filepath"
	"time"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/safefs"
)

// MetadataFile is the per-item metadata document stored next to snapshots.
const MetadataFile = "backup_info.json"

// DefaultFSTimeout bounds every single stat/readdir performed by the helpers.
const DefaultFSTimeout = 30 * time.Second

// Accountant measures the byte size of files and directory trees.
type Accountant struct {
	logger  *logging.Logger
	timeout time.Duration
}

// NewAccountant creates an Accountant. A zero timeout disables the per-call bound.
func NewAccountant(logger *logging.Logger, timeout time.Duration) *Accountant {
	return &Accountant{logger: logging.OrDefault(logger), timeout: timeout}
}

// Size returns the size in bytes of path. Directories are summed recursively.
// When ignoreMetadata is set, entries named MetadataFile are skipped at every level.
// Unreadable entries are logged and count as zero; Size never fails.
// Symbolic links are not followed and count as zero.
func (a *Accountant) Size(ctx context.Context, path string, ignoreMetadata bool) int64 {
	info, err := safefs.Lstat(ctx, path, a.timeout)
	if err != nil {
		a.logger.Error("Error calculating size for %s: %v", path, err)
		return 0
	}
	if info.Mode()&fileModeSymlink != 0 {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	return a.dirSize(ctx, path, ignoreMetadata)
}

func (a *Accountant) dirSize(ctx context.Context, dir string, ignoreMetadata bool) int64 {
	entries, err := safefs.ReadDir(ctx, dir, a.timeout)
	if err != nil {
		a.logger.Error("Error calculating size for %s: %v", dir, err)
		return 0
	}

	var total int64
	for _, entry := range entries {
		if ignoreMetadata && entry.Name() == MetadataFile {
			continue
		}
		if ctx.Err() != nil {
			return total
		}
		total += a.Size(ctx, filepath.Join(dir, entry.Name()), ignoreMetadata)
	}
	return total
}

var defaultAccountant = NewAccountant(nil, DefaultFSTimeout)

// Size measures path with the package default Accountant.
func Size(ctx context.Context, path string, ignoreMetadata bool) int64 {
	if ctx == nil {
		ctx = context.Background()
	}
	return defaultAccountant.Size(ctx, path, ignoreMetadata)
}
