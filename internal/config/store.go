package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tis24dev/savevault/internal/logging"
)

var (
	// ErrUnknownKey is returned for keys that are not part of Settings.
	ErrUnknownKey = errors.New("unknown setting")

	// ErrInvalidValue is returned when a value has the wrong type or range.
	ErrInvalidValue = errors.New("invalid setting value")

	// ErrStoreClosed is returned by Set after Close.
	ErrStoreClosed = errors.New("settings store closed")
)

// Effects receives the reactions triggered by persisted setting changes.
// They run on the store's writer goroutine, after the file has been written.
type Effects interface {
	// ApplyTheme asks every open surface to re-theme.
	ApplyTheme(theme string)
	// RefreshBackupTable asks the main surface to rebuild its backup table.
	RefreshBackupTable()
	// ChangeLanguage switches the active locale.
	ChangeLanguage(ctx context.Context, language string) error
	// ApplyLanguage asks every open surface to re-render its strings.
	ApplyLanguage()
	// RebuildMenu rebuilds the application menu with the active locale.
	RebuildMenu()
}

// NopEffects ignores every reaction.
type NopEffects struct{}

func (NopEffects) ApplyTheme(string)                            {}
func (NopEffects) RefreshBackupTable()                          {}
func (NopEffects) ChangeLanguage(context.Context, string) error { return nil }
func (NopEffects) ApplyLanguage()                               {}
func (NopEffects) RebuildMenu()                                 {}

type writeJob struct {
	key    string
	value  any
	result chan error
}

// Store is the single owner of settings.json. Reads are served from memory;
// writes go through a FIFO queue drained by one writer goroutine, so two Set
// calls never race on the file and the last Set always wins on disk.
type Store struct {
	path    string
	logger  *logging.Logger
	effects Effects

	mu      sync.RWMutex
	current Settings

	qmu    sync.Mutex
	queue  []writeJob
	closed bool
	wake   chan struct{}
	done   chan struct{}

	writeFile func(path string, data []byte) error
}

// NewStore creates a store for the settings file at path and starts its writer.
// Call Load before serving reads and Close when done.
func NewStore(path string, logger *logging.Logger, effects Effects) *Store {
	if effects == nil {
		effects = NopEffects{}
	}
	s := &Store{
		path:      path,
		logger:    logging.OrDefault(logger).With("settings"),
		effects:   effects,
		current:   Defaults(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		writeFile: atomicWrite,
	}
	go s.run()
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads settings.json, overlaying it on the defaults key by key. A key
// with a value of the wrong type keeps its default. A missing file or one
// that is not a JSON object is replaced with the defaults; Load never fails.
func (s *Store) Load() Settings {
	settings := Defaults()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("Cannot create settings directory: %v", err)
	}

	data, err := os.ReadFile(s.path)
	if err == nil {
		var rejected []error
		rejected, err = settings.Overlay(data)
		for _, r := range rejected {
			s.logger.Warning("Ignoring setting %v; using the default", r)
		}
	}
	if err != nil {
		settings = Defaults()
		s.logger.Warning("Error loading settings, using defaults: %v", err)
		if data, mErr := json.Marshal(settings); mErr != nil {
			s.logger.Error("Cannot encode default settings: %v", mErr)
		} else if wErr := s.writeFile(s.path, data); wErr != nil {
			s.logger.Error("Cannot write default settings: %v", wErr)
		}
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return settings.Clone()
}

// Get returns a snapshot of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Set updates key in memory immediately and queues a write of the whole
// settings document. The returned channel yields the outcome of that write
// (including its effects) and is then closed. Validation errors are reported
// on the channel without queueing anything.
func (s *Store) Set(key string, value any) <-chan error {
	result := make(chan error, 1)

	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.closed {
		result <- ErrStoreClosed
		close(result)
		return result
	}

	s.mu.Lock()
	next := s.current.Clone()
	if err := next.apply(key, value); err != nil {
		s.mu.Unlock()
		result <- err
		close(result)
		return result
	}
	s.current = next
	s.mu.Unlock()

	s.queue = append(s.queue, writeJob{key: key, value: value, result: result})
	s.signal()
	return result
}

// Flush waits until every write queued before the call has completed.
func (s *Store) Flush(ctx context.Context) error {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return nil
	}
	barrier := make(chan error, 1)
	s.queue = append(s.queue, writeJob{result: barrier})
	s.signal()
	s.qmu.Unlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes, drains the queue and stops the writer.
func (s *Store) Close() {
	s.qmu.Lock()
	if !s.closed {
		s.closed = true
		s.signal()
	}
	s.qmu.Unlock()
	<-s.done
}

func (s *Store) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) next() (writeJob, bool, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 {
		return writeJob{}, false, s.closed
	}
	job := s.queue[0]
	s.queue[0] = writeJob{}
	s.queue = s.queue[1:]
	return job, true, false
}

func (s *Store) run() {
	defer close(s.done)
	for {
		job, ok, closed := s.next()
		if closed {
			return
		}
		if !ok {
			<-s.wake
			continue
		}
		if job.key == "" {
			close(job.result)
			continue
		}
		err := s.persist(job)
		if err != nil {
			s.logger.Error("Error in write queue: %v", err)
		}
		job.result <- err
		close(job.result)
	}
}

// persist writes the full current snapshot and fires the effects of job.key.
func (s *Store) persist(job writeJob) error {
	s.mu.RLock()
	data, err := json.Marshal(s.current)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.writeFile(s.path, data); err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	s.logger.Debug("Settings updated successfully: %s: %v", job.key, job.value)

	switch job.key {
	case KeyTheme:
		s.effects.ApplyTheme(job.value.(string))
	case KeyGameInstalls:
		s.effects.RefreshBackupTable()
	case KeyLanguage:
		if err := s.effects.ChangeLanguage(context.Background(), job.value.(string)); err != nil {
			return fmt.Errorf("change language to %v: %w", job.value, err)
		}
		s.effects.ApplyLanguage()
		s.effects.RebuildMenu()
	}
	return nil
}

// atomicWrite writes data to path using a tmp+rename strategy.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
