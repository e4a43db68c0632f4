package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/types"
)

// LogSink writes every event to a logger.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a LogSink; a nil logger uses the package default.
func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logging.OrDefault(logger)}
}

func (s *LogSink) OnProgress(e ProgressEvent) {
	if e.IsLifecycle() {
		s.logger.Debug("%s [%s] %s", e.Title, e.RunID, e.Lifecycle)
		return
	}
	s.logger.Debug("%s [%s] %d%%", e.Title, e.RunID, e.Percent)
}

func (s *LogSink) OnAlert(a Alert) {
	msg := a.Title
	if a.Detail != "" {
		msg += ": " + a.Detail
	}
	switch a.Severity {
	case types.SeverityModal:
		s.logger.Error("%s", msg)
	case types.SeverityWarning:
		s.logger.Warning("%s", msg)
	default:
		s.logger.Info("%s", msg)
	}
	for _, d := range a.Details {
		s.logger.Error("  %s", d)
	}
}

func (s *LogSink) RefreshBackupTable()  { s.logger.Debug("Backup table refresh requested") }
func (s *LogSink) RefreshRestoreTable() { s.logger.Debug("Restore table refresh requested") }

// TerminalProgress renders progress as a single redrawn bar when out is a
// terminal, and as one line per update otherwise.
type TerminalProgress struct {
	mu    sync.Mutex
	out   io.Writer
	tty   bool
	width int
	title cases.Caser
}

// NewTerminalProgress creates a progress renderer writing to out.
func NewTerminalProgress(out io.Writer) *TerminalProgress {
	p := &TerminalProgress{out: out, width: 80, title: cases.Title(language.English)}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			p.width = w
		}
	}
	return p
}

func (p *TerminalProgress) label(e ProgressEvent) string {
	if e.Title != "" {
		return e.Title
	}
	return p.title.String(strings.ReplaceAll(e.Operation, "-", " "))
}

func (p *TerminalProgress) OnProgress(e ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := p.label(e)
	switch e.Lifecycle {
	case types.LifecycleStart:
		if !p.tty {
			fmt.Fprintf(p.out, "%s: started\n", label)
		}
		return
	case types.LifecycleEnd:
		if p.tty {
			fmt.Fprintln(p.out)
		} else {
			fmt.Fprintf(p.out, "%s: done\n", label)
		}
		return
	}

	if !p.tty {
		fmt.Fprintf(p.out, "%s: %d%%\n", label, e.Percent)
		return
	}
	barWidth := p.width - len(label) - 10
	if barWidth < 10 {
		barWidth = 10
	}
	filled := barWidth * e.Percent / 100
	fmt.Fprintf(p.out, "\r%s [%s%s] %3d%%", label,
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), e.Percent)
}

// Fanout forwards every event to all of its sinks. Nil entries are skipped.
type Fanout struct {
	progress      []ProgressSink
	notifications []NotificationSink
	views         []ViewSink
}

// NewFanout builds a Fanout from values implementing any of the sink interfaces.
func NewFanout(sinks ...any) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if p, ok := s.(ProgressSink); ok {
			f.progress = append(f.progress, p)
		}
		if n, ok := s.(NotificationSink); ok {
			f.notifications = append(f.notifications, n)
		}
		if v, ok := s.(ViewSink); ok {
			f.views = append(f.views, v)
		}
	}
	return f
}

func (f *Fanout) OnProgress(e ProgressEvent) {
	for _, s := range f.progress {
		s.OnProgress(e)
	}
}

func (f *Fanout) OnAlert(a Alert) {
	for _, s := range f.notifications {
		s.OnAlert(a)
	}
}

func (f *Fanout) RefreshBackupTable() {
	for _, s := range f.views {
		s.RefreshBackupTable()
	}
}

func (f *Fanout) RefreshRestoreTable() {
	for _, s := range f.views {
		s.RefreshRestoreTable()
	}
}
