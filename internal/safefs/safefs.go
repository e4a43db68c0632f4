// Package safefs wraps the filesystem calls used by tree walkers so that a
// stalled mount (network share, sleeping external drive) cannot hang a
// size scan or migration forever.
package safefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

var (
	osStat    = os.Stat
	osLstat   = os.Lstat
	osReadDir = os.ReadDir
)

// ErrTimeout is a sentinel error used to classify filesystem operations that did not
// complete within the configured timeout.
var ErrTimeout = errors.New("filesystem operation timed out")

// TimeoutError is returned when a filesystem operation exceeds its allowed duration.
// Note that this does not cancel the underlying kernel call; it only stops waiting.
type TimeoutError struct {
	Op      string
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return "filesystem operation timed out"
	}
	if e.Timeout > 0 {
		return fmt.Sprintf("%s %s: timeout after %s", e.Op, e.Path, e.Timeout)
	}
	return fmt.Sprintf("%s %s: timeout", e.Op, e.Path)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0
		}
		if remaining < timeout {
			return remaining
		}
	}
	return timeout
}

// guarded runs fn on a helper goroutine and stops waiting after timeout.
func guarded[T any](ctx context.Context, op, path string, timeout time.Duration, fn func(string) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	timeout = effectiveTimeout(ctx, timeout)
	if timeout <= 0 {
		return fn(path)
	}

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(path)
		ch <- result{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, &TimeoutError{Op: op, Path: path, Timeout: timeout}
	}
}

// Stat is os.Stat bounded by timeout. A zero timeout waits indefinitely.
func Stat(ctx context.Context, path string, timeout time.Duration) (fs.FileInfo, error) {
	return guarded(ctx, "stat", path, timeout, osStat)
}

// Lstat is os.Lstat bounded by timeout. A zero timeout waits indefinitely.
func Lstat(ctx context.Context, path string, timeout time.Duration) (fs.FileInfo, error) {
	return guarded(ctx, "lstat", path, timeout, osLstat)
}

// ReadDir is os.ReadDir bounded by timeout. A zero timeout waits indefinitely.
func ReadDir(ctx context.Context, path string, timeout time.Duration) ([]os.DirEntry, error) {
	return guarded(ctx, "readdir", path, timeout, osReadDir)
}
