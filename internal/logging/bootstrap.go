package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tis24dev/savevault/internal/types"
)

type bootstrapEntry struct {
	level   types.LogLevel
	message string
}

// BootstrapLogger collects messages emitted before the main logger exists
// (flag parsing, settings discovery) so they can be replayed into it.
type BootstrapLogger struct {
	mu       sync.Mutex
	entries  []bootstrapEntry
	flushed  bool
	minLevel types.LogLevel
	stderr   io.Writer
}

// NewBootstrapLogger creates a bootstrap logger that keeps INFO and above.
func NewBootstrapLogger() *BootstrapLogger {
	return &BootstrapLogger{
		minLevel: types.LogLevelInfo,
		stderr:   os.Stderr,
	}
}

// SetLevel updates the minimum level replayed on Flush.
func (b *BootstrapLogger) SetLevel(level types.LogLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minLevel = level
}

// Debug records a debug message without printing it.
func (b *BootstrapLogger) Debug(format string, args ...interface{}) {
	b.record(types.LogLevelDebug, fmt.Sprintf(format, args...))
}

// Info records an informational message.
func (b *BootstrapLogger) Info(format string, args ...interface{}) {
	b.record(types.LogLevelInfo, fmt.Sprintf(format, args...))
}

// Warning records a warning and echoes it on stderr immediately.
func (b *BootstrapLogger) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(b.stderr, msg)
	b.record(types.LogLevelWarning, msg)
}

// Error records an error and echoes it on stderr immediately.
func (b *BootstrapLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(b.stderr, msg)
	b.record(types.LogLevelError, msg)
}

func (b *BootstrapLogger) record(level types.LogLevel, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushed {
		return
	}
	b.entries = append(b.entries, bootstrapEntry{level: level, message: message})
}

// Flush replays the recorded entries into logger. Only the first call has an effect.
func (b *BootstrapLogger) Flush(logger *Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushed || logger == nil {
		return
	}
	for _, entry := range b.entries {
		if entry.level > b.minLevel {
			continue
		}
		switch entry.level {
		case types.LogLevelDebug:
			logger.Debug("%s", entry.message)
		case types.LogLevelWarning:
			logger.Warning("%s", entry.message)
		case types.LogLevelError:
			logger.Error("%s", entry.message)
		default:
			logger.Info("%s", entry.message)
		}
	}
	b.flushed = true
	b.entries = nil
}
