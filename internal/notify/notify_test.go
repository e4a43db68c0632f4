package notify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/types"
)

func TestReporterEmitsMonotonicPercents(t *testing.T) {
	rec := &Recorder{}
	r := NewReporter(rec, "export", "Exporting backups", "run-1")

	r.Start()
	for _, p := range []int{0, 10, 10, 5, 50, 120, 100} {
		r.Percent(p)
	}
	r.End()

	got := rec.Percents()
	want := []int{0, 10, 50, 100}
	if len(got) != len(want) {
		t.Fatalf("percents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("percents = %v, want %v", got, want)
		}
	}

	events := rec.Events()
	if events[0].Lifecycle != types.LifecycleStart {
		t.Fatalf("first event = %v, want start", events[0])
	}
	last := events[len(events)-1]
	if last.Lifecycle != types.LifecycleEnd {
		t.Fatalf("last event = %v, want end", last)
	}
	for _, e := range events {
		if e.Operation != "export" || e.RunID != "run-1" {
			t.Fatalf("event %v missing operation or run id", e)
		}
	}
}

func TestReporterNilSinkIsSafe(t *testing.T) {
	r := NewReporter(nil, "export", "", "")
	r.Start()
	r.Percent(50)
	r.End()
}

func TestFanoutDispatchesByInterface(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	f := NewFanout(a, nil, b)

	f.OnProgress(ProgressEvent{Operation: "migrate-backups", Percent: 10})
	f.OnAlert(Alert{Severity: types.SeveritySuccess, Title: "done"})
	f.RefreshBackupTable()
	f.RefreshRestoreTable()

	for _, r := range []*Recorder{a, b} {
		if len(r.Events()) != 1 || len(r.AlertList()) != 1 {
			t.Fatalf("recorder missed events: %+v", r)
		}
		if r.BackupRefreshes != 1 || r.RestoreRefreshes != 1 {
			t.Fatalf("refresh counts = %d/%d", r.BackupRefreshes, r.RestoreRefreshes)
		}
	}
}

func TestTerminalProgressNonTTY(t *testing.T) {
	var buf bytes.Buffer
	p := NewTerminalProgress(&buf)

	p.OnProgress(ProgressEvent{Operation: "migrate-backups", Lifecycle: types.LifecycleStart})
	p.OnProgress(ProgressEvent{Operation: "migrate-backups", Percent: 42})
	p.OnProgress(ProgressEvent{Operation: "migrate-backups", Lifecycle: types.LifecycleEnd})

	out := buf.String()
	for _, want := range []string{"Migrate Backups: started", "Migrate Backups: 42%", "Migrate Backups: done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestLogSinkWritesAlerts(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(types.LogLevelDebug, false)
	logger.SetOutput(&buf)
	s := NewLogSink(logger)

	s.OnAlert(Alert{Severity: types.SeverityWarning, Title: "Migration incomplete", Details: []string{"game-1: denied"}})

	out := buf.String()
	if !strings.Contains(out, "Migration incomplete") || !strings.Contains(out, "game-1: denied") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		500 * time.Millisecond:                        "< 1s",
		5 * time.Second:                               "5s",
		2*time.Minute + 3*time.Second:                 "2m 3s",
		2*time.Hour + 15*time.Minute + 30*time.Second: "2h 15m 30s",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}
