package tui

import (
	"context"
	"sync"
)

var (
	abortContextMu sync.RWMutex
	abortContext   context.Context
)

// SetAbortContext registers the context that interrupts TUI apps when it is
// canceled (Ctrl+C in the CLI). Passing nil clears it.
func SetAbortContext(ctx context.Context) {
	abortContextMu.Lock()
	abortContext = ctx
	abortContextMu.Unlock()
}

func getAbortContext() context.Context {
	abortContextMu.RLock()
	ctx := abortContext
	abortContextMu.RUnlock()
	return ctx
}

// abortErr reports the abort context's error if it is already done.
func abortErr() error {
	if ctx := getAbortContext(); ctx != nil {
		return ctx.Err()
	}
	return nil
}

// watchAbort stops app if the abort context ends before done is closed.
func watchAbort(app *App, done <-chan struct{}) {
	ctx := getAbortContext()
	if ctx == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			app.Stop()
		case <-done:
		}
	}()
}
