// Package notify defines how long-running operations report progress and
// outcomes to whatever front end is attached (terminal, TUI, GUI bridge).
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/tis24dev/savevault/internal/types"
)

// ProgressEvent is one progress update for an operation. Exactly one of
// Lifecycle or Percent is meaningful: Lifecycle is set for start/end markers,
// otherwise Percent holds 0-100.
type ProgressEvent struct {
	Operation string
	Title     string
	RunID     string
	Percent   int
	Lifecycle types.Lifecycle
}

// IsLifecycle reports whether the event is a start/end marker.
func (e ProgressEvent) IsLifecycle() bool {
	return e.Lifecycle != types.LifecycleNone
}

func (e ProgressEvent) String() string {
	if e.IsLifecycle() {
		return fmt.Sprintf("%s:%s", e.Operation, e.Lifecycle)
	}
	return fmt.Sprintf("%s:%d%%", e.Operation, e.Percent)
}

// Alert is a user-facing notification.
type Alert struct {
	Severity types.Severity
	Title    string
	Detail   string
	Details  []string
}

// ProgressSink receives progress events.
type ProgressSink interface {
	OnProgress(ProgressEvent)
}

// NotificationSink receives alerts.
type NotificationSink interface {
	OnAlert(Alert)
}

// ViewSink receives requests to refresh data-bound views.
type ViewSink interface {
	RefreshBackupTable()
	RefreshRestoreTable()
}

// Sink bundles every outward channel used by the orchestrator.
type Sink interface {
	ProgressSink
	NotificationSink
	ViewSink
}

// Reporter emits the events of a single operation run.
type Reporter struct {
	sink      ProgressSink
	operation string
	title     string
	runID     string

	mu   sync.Mutex
	last int
}

// NewReporter creates a reporter for one run of operation.
func NewReporter(sink ProgressSink, operation, title, runID string) *Reporter {
	return &Reporter{sink: sink, operation: operation, title: title, runID: runID, last: -1}
}

// Start emits the start marker.
func (r *Reporter) Start() {
	r.emit(ProgressEvent{Lifecycle: types.LifecycleStart})
}

// End emits the end marker.
func (r *Reporter) End() {
	r.emit(ProgressEvent{Lifecycle: types.LifecycleEnd})
}

// Percent emits p when it is larger than the last emitted value, keeping the
// stream monotonic and free of duplicates. Values are clamped to 0-100.
func (r *Reporter) Percent(p int) {
	if r == nil {
		return
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	r.mu.Lock()
	if p <= r.last {
		r.mu.Unlock()
		return
	}
	r.last = p
	r.mu.Unlock()
	r.emit(ProgressEvent{Percent: p})
}

func (r *Reporter) emit(e ProgressEvent) {
	if r == nil || r.sink == nil {
		return
	}
	e.Operation = r.operation
	e.Title = r.title
	e.RunID = r.runID
	r.sink.OnProgress(e)
}

// FormatDuration formats a duration in human-readable format (e.g., "2h 15m 30s")
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
