package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/types"
)

type recordingEffects struct {
	mu        sync.Mutex
	calls     []string
	langError error
}

func (r *recordingEffects) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingEffects) ApplyTheme(theme string) { r.add("theme:" + theme) }
func (r *recordingEffects) RefreshBackupTable()     { r.add("refresh-backup-table") }
func (r *recordingEffects) ChangeLanguage(_ context.Context, lang string) error {
	r.add("change-language:" + lang)
	return r.langError
}
func (r *recordingEffects) ApplyLanguage() { r.add("apply-language") }
func (r *recordingEffects) RebuildMenu()   { r.add("rebuild-menu") }

func (r *recordingEffects) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestStore(t *testing.T, effects Effects) (*Store, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)
	path := filepath.Join(t.TempDir(), "SaveVault", "settings.json")
	s := NewStore(path, logger, effects)
	t.Cleanup(s.Close)
	return s, &buf
}

func readSettingsFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	return out
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settings write")
		return nil
	}
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	s, logs := newTestStore(t, nil)

	got := s.Load()
	if got.Theme != "dark" || got.MaxBackups != 5 || got.GameInstalls.Initialized {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	onDisk := readSettingsFile(t, s.Path())
	if onDisk["gameInstalls"] != "uninitialized" {
		t.Fatalf("gameInstalls on disk = %v", onDisk["gameInstalls"])
	}
	if !strings.Contains(logs.String(), "Error loading settings, using defaults") {
		t.Fatalf("load failure should be logged: %q", logs.String())
	}
}

func TestLoadCorruptFileResetsToDefaults(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load()
	if got.Theme != "dark" {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if readSettingsFile(t, s.Path())["theme"] != "dark" {
		t.Fatal("corrupt file should be replaced by defaults")
	}
}

func TestLoadMergesAndPreservesUnknownKeys(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"theme":"light","maxBackups":9,"gameInstalls":["D:/Games"],"futureFlag":{"x":1}}`
	if err := os.WriteFile(s.Path(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load()
	if got.Theme != "light" || got.MaxBackups != 9 {
		t.Fatalf("persisted values not applied: %+v", got)
	}
	if !got.AutoAppUpdate || got.PinnedGames == nil {
		t.Fatalf("missing keys should take defaults: %+v", got)
	}
	if !got.GameInstalls.Initialized || len(got.GameInstalls.Paths) != 1 {
		t.Fatalf("gameInstalls = %+v", got.GameInstalls)
	}

	if err := wait(t, s.Set(KeyExportPath, "/exports")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	onDisk := readSettingsFile(t, s.Path())
	if _, ok := onDisk["futureFlag"]; !ok {
		t.Fatalf("unknown key dropped on rewrite: %v", onDisk)
	}
	if onDisk["exportPath"] != "/exports" || onDisk["theme"] != "light" {
		t.Fatalf("rewrite lost values: %v", onDisk)
	}
}

func TestLoadKeepsWellFormedKeysWhenOneIsMistyped(t *testing.T) {
	s, logs := newTestStore(t, nil)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"backupPath":"/data/my backups","theme":"light","maxBackups":"7"}`
	if err := os.WriteFile(s.Path(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got := s.Load()
	if got.BackupPath != "/data/my backups" || got.Theme != "light" {
		t.Fatalf("well-formed keys lost: %+v", got)
	}
	if got.MaxBackups != 5 {
		t.Fatalf("MaxBackups = %d, want default 5", got.MaxBackups)
	}
	if !strings.Contains(logs.String(), "maxBackups") {
		t.Fatalf("rejected key should be logged: %q", logs.String())
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != doc {
		t.Fatalf("settings file rewritten: %s", data)
	}
}

func TestLoadNonObjectResetsToDefaults(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte(`["not","settings"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := s.Load(); got.Theme != "dark" {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if readSettingsFile(t, s.Path())["theme"] != "dark" {
		t.Fatal("non-object file should be replaced by defaults")
	}
}

func TestSetUpdatesMemorySynchronously(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Load()

	block := make(chan struct{})
	prev := s.writeFile
	s.writeFile = func(path string, data []byte) error {
		<-block
		return prev(path, data)
	}

	ch := s.Set(KeyMaxBackups, 12)
	if s.Get().MaxBackups != 12 {
		t.Fatal("Get should observe the new value before the write completes")
	}
	close(block)
	if err := wait(t, ch); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestSequentialSetsPersistLastValue(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Load()

	var inFlight, maxInFlight int32
	var order []float64
	var orderMu sync.Mutex
	prev := s.writeFile
	s.writeFile = func(path string, data []byte) error {
		n := atomic.AddInt32(&inFlight, 1)
		if n > atomic.LoadInt32(&maxInFlight) {
			atomic.StoreInt32(&maxInFlight, n)
		}
		time.Sleep(5 * time.Millisecond)
		var doc map[string]any
		_ = json.Unmarshal(data, &doc)
		orderMu.Lock()
		order = append(order, doc["maxBackups"].(float64))
		orderMu.Unlock()
		err := prev(path, data)
		atomic.AddInt32(&inFlight, -1)
		return err
	}

	a := s.Set(KeyMaxBackups, 1)
	b := s.Set(KeyMaxBackups, 2)
	c := s.Set(KeyMaxBackups, 3)
	for _, ch := range []<-chan error{a, b, c} {
		if err := wait(t, ch); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if maxInFlight != 1 {
		t.Fatalf("writes overlapped: max in flight %d", maxInFlight)
	}
	if len(order) != 3 || order[2] != 3 {
		t.Fatalf("write order = %v", order)
	}
	if readSettingsFile(t, s.Path())["maxBackups"] != float64(3) {
		t.Fatal("final on-disk value should be the last Set")
	}
}

func TestFailedWriteDoesNotBlockQueue(t *testing.T) {
	s, logs := newTestStore(t, nil)
	s.Load()

	prev := s.writeFile
	var calls int32
	s.writeFile = func(path string, data []byte) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("disk full")
		}
		return prev(path, data)
	}

	first := s.Set(KeyTheme, "light")
	second := s.Set(KeyExportPath, "/e")

	if err := wait(t, first); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("first write err = %v; want disk full", err)
	}
	if err := wait(t, second); err != nil {
		t.Fatalf("second write should succeed: %v", err)
	}
	if s.Get().Theme != "light" {
		t.Fatal("in-memory value must not be rolled back")
	}
	if !strings.Contains(logs.String(), "Error in write queue") {
		t.Fatalf("failure should be logged: %q", logs.String())
	}
}

func TestEffectsFireAfterWrite(t *testing.T) {
	effects := &recordingEffects{}
	s, _ := newTestStore(t, effects)
	s.Load()

	for _, ch := range []<-chan error{
		s.Set(KeyTheme, "light"),
		s.Set(KeyGameInstalls, []string{"/games"}),
		s.Set(KeyLanguage, "zh_CN"),
		s.Set(KeyMaxBackups, 3),
	} {
		if err := wait(t, ch); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	want := []string{
		"theme:light",
		"refresh-backup-table",
		"change-language:zh_CN",
		"apply-language",
		"rebuild-menu",
	}
	got := effects.snapshot()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("effects = %v; want %v", got, want)
	}
}

func TestLanguageSwitchFailureSkipsRefresh(t *testing.T) {
	effects := &recordingEffects{langError: errors.New("missing catalog")}
	s, _ := newTestStore(t, effects)
	s.Load()

	if err := wait(t, s.Set(KeyLanguage, "zh_TW")); err == nil {
		t.Fatal("expected language switch error")
	}
	got := effects.snapshot()
	if len(got) != 1 || got[0] != "change-language:zh_TW" {
		t.Fatalf("effects = %v; want only the locale switch attempt", got)
	}
	if readSettingsFile(t, s.Path())["language"] != "zh_TW" {
		t.Fatal("the write itself should have happened")
	}
}

func TestSetValidation(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Load()

	tests := []struct {
		key   string
		value any
		want  error
	}{
		{"nope", 1, ErrUnknownKey},
		{KeyTheme, "neon", ErrInvalidValue},
		{KeyTheme, 3, ErrInvalidValue},
		{KeyMaxBackups, 0, ErrInvalidValue},
		{KeyLanguage, "de_DE", ErrInvalidValue},
		{KeyBackupPath, "", ErrInvalidValue},
		{KeyPinnedGames, "x", ErrInvalidValue},
	}
	for _, tt := range tests {
		if err := wait(t, s.Set(tt.key, tt.value)); !errors.Is(err, tt.want) {
			t.Errorf("Set(%s, %v) err = %v; want %v", tt.key, tt.value, err, tt.want)
		}
	}
	if s.Get().Theme != "dark" {
		t.Fatal("rejected values must not change memory")
	}
}

func TestSetAfterClose(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Load()
	s.Close()
	if err := wait(t, s.Set(KeyTheme, "light")); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("err = %v; want ErrStoreClosed", err)
	}
}

func TestFlushWaitsForPendingWrites(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Load()

	release := make(chan struct{})
	prev := s.writeFile
	s.writeFile = func(path string, data []byte) error {
		<-release
		return prev(path, data)
	}
	s.Set(KeyExportPath, "/flushed")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Flush with blocked writer err = %v", err)
	}

	close(release)
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if readSettingsFile(t, s.Path())["exportPath"] != "/flushed" {
		t.Fatal("flush returned before the write landed")
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Load()
	if err := wait(t, s.Set(KeyPinnedGames, []string{"1001"})); err != nil {
		t.Fatal(err)
	}
	snap := s.Get()
	snap.PinnedGames[0] = "mutated"
	if s.Get().PinnedGames[0] != "1001" {
		t.Fatal("Get must return a deep copy")
	}
}
