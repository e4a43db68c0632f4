//go:build !linux && !darwin

package migrate

import (
	"os"
	"time"
)

// accessTime falls back to the modification time where the platform stat
// structure is not inspected.
func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
