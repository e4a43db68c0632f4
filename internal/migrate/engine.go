package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tis24dev/savevault/internal/fsops"
	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/notify"
)

// ItemError records a failure on a single file or directory. A migration
// continues with the next sibling after an ItemError.
type ItemError struct {
	Op   string
	Path string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("Error moving file or directory: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Result summarizes a migration.
type Result struct {
	SourceExisted bool
	TotalBytes    int64
	MovedBytes    int64
	Files         int
	Dirs          int
	Errors        []*ItemError
}

// OK reports whether the migration completed without item errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Messages returns the error messages in the order they occurred.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}

// Sizer measures trees before a migration starts.
type Sizer interface {
	Size(ctx context.Context, path string, ignoreMetadata bool) int64
}

// Options configures an Engine.
type Options struct {
	Logger *logging.Logger
	Sizer  Sizer
	// FreeSpace, when set, is consulted before moving any byte. A shortfall
	// is logged as a warning only; source and destination may share a device.
	FreeSpace func(path string) (uint64, error)
	// KeepFailedSources removes walked source directories only when empty,
	// so files that failed to move stay at the old location.
	KeepFailedSources bool
}

// Engine drives the tasks produced by Walk.
type Engine struct {
	logger            *logging.Logger
	sizer             Sizer
	freeSpace         func(path string) (uint64, error)
	keepFailedSources bool
}

var (
	osMkdirAll  = os.MkdirAll
	osLstat     = os.Lstat
	osChtimes   = os.Chtimes
	osRemove    = os.Remove
	osRemoveAll = os.RemoveAll
)

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	logger := logging.OrDefault(opts.Logger).With("migrate")
	sizer := opts.Sizer
	if sizer == nil {
		sizer = fsops.NewAccountant(logger, fsops.DefaultFSTimeout)
	}
	return &Engine{
		logger:            logger,
		sizer:             sizer,
		freeSpace:         opts.FreeSpace,
		keepFailedSources: opts.KeepFailedSources,
	}
}

// Migrate moves everything under src to dst. A missing src is a no-op with an
// empty Result. Start and end progress markers are emitted through progress
// only when src exists. Item failures are collected in Result.Errors; the
// returned error is non-nil when a precondition fails (src is not a directory,
// dst lies inside src or cannot be created) or ctx is cancelled mid-way.
func (e *Engine) Migrate(ctx context.Context, src, dst string, progress *notify.Reporter) (Result, error) {
	var res Result

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.logger.Info("Source %s does not exist, nothing to move", src)
			return res, nil
		}
		return res, fmt.Errorf("stat source %s: %w", src, err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("source %s is not a directory", src)
	}
	if IsWithin(src, dst) {
		return res, fmt.Errorf("destination %s is inside source %s", dst, src)
	}
	if err := osMkdirAll(dst, 0o755); err != nil {
		return res, fmt.Errorf("create destination %s: %w", dst, err)
	}
	res.SourceExisted = true

	res.TotalBytes = e.sizer.Size(ctx, src, false)
	e.logger.Info("Moving %s (%s) to %s", src, humanize.IBytes(uint64(res.TotalBytes)), dst)
	e.preflight(dst, res.TotalBytes)

	progress.Start()
	defer progress.End()

	d := &driver{engine: e, res: &res, progress: progress, unplaced: make(map[string]bool), held: make(map[string]bool)}
	for task := range Walk(src, dst) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d.run(task)
	}
	if res.TotalBytes == 0 {
		progress.Percent(100)
	}

	if res.OK() {
		e.logger.Info("Moved %d files (%s)", res.Files, humanize.IBytes(uint64(res.MovedBytes)))
	} else {
		e.logger.Warning("Moved %d files with %d errors", res.Files, len(res.Errors))
	}
	return res, nil
}

// IsWithin reports whether dst equals src or lies beneath it.
func IsWithin(src, dst string) bool {
	s, err1 := filepath.Abs(src)
	d, err2 := filepath.Abs(dst)
	if err1 != nil || err2 != nil {
		return false
	}
	if s == d {
		return true
	}
	rel, err := filepath.Rel(s, d)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (e *Engine) preflight(dst string, need int64) {
	if e.freeSpace == nil || need <= 0 {
		return
	}
	free, err := e.freeSpace(dst)
	if err != nil {
		e.logger.Debug("Free space check for %s skipped: %v", dst, err)
		return
	}
	if free < uint64(need) {
		e.logger.Warning("Destination %s has %s free, %s needed",
			dst, humanize.IBytes(free), humanize.IBytes(uint64(need)))
	}
}

type driver struct {
	engine   *Engine
	res      *Result
	progress *notify.Reporter
	// unplaced holds source directories whose destination could not be created.
	unplaced map[string]bool
	// held holds source directories that still contain a kept subdirectory.
	held map[string]bool
}

func (d *driver) fail(op, path string, err error) {
	item := &ItemError{Op: op, Path: path, Err: err}
	d.engine.logger.Error("%v", item)
	d.res.Errors = append(d.res.Errors, item)
}

func (d *driver) run(t Task) {
	switch t.Kind {
	case TaskMkdir:
		if err := osMkdirAll(t.Dest, 0o755); err != nil {
			d.fail("mkdir", t.Dest, err)
			d.unplaced[t.Source] = true
			return
		}
		d.res.Dirs++
	case TaskCopy:
		if err := d.moveFile(t.Source, t.Dest); err != nil {
			d.fail("move", t.Source, err)
			return
		}
		d.res.Files++
	case TaskLink:
		if err := moveLink(t.Source, t.Dest); err != nil {
			d.fail("link", t.Source, err)
		}
	case TaskRemoveDir:
		d.removeDir(t.Source)
	case TaskFailed:
		d.fail("read", t.Source, t.Err)
		d.held[filepath.Dir(t.Source)] = true
	}
}

func (d *driver) removeDir(dir string) {
	switch {
	case d.unplaced[dir]:
		d.engine.logger.Warning("Keeping %s: its destination could not be created", dir)
		d.held[filepath.Dir(dir)] = true
	case d.engine.keepFailedSources || d.held[dir]:
		if err := osRemove(dir); err != nil {
			d.engine.logger.Warning("Keeping %s: %v", dir, err)
			d.held[filepath.Dir(dir)] = true
		}
	default:
		if err := osRemoveAll(dir); err != nil {
			d.fail("remove", dir, err)
		}
	}
}

func (d *driver) moveFile(src, dst string) error {
	info, err := osLstat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("unsupported file type %s", info.Mode().Type())
	}

	if err := d.copyWithProgress(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	if err := osChtimes(dst, accessTime(info), info.ModTime()); err != nil {
		return fmt.Errorf("preserve times on %s: %w", dst, err)
	}
	return osRemove(src)
}

func (d *driver) copyWithProgress(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	w := &countingWriter{w: out, onWrite: d.advance}
	if _, err := io.Copy(w, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (d *driver) advance(n int) {
	d.res.MovedBytes += int64(n)
	if d.res.TotalBytes > 0 {
		d.progress.Percent(int(d.res.MovedBytes * 100 / d.res.TotalBytes))
	}
}

func moveLink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.Symlink(target, dst); err != nil {
		return err
	}
	return osRemove(src)
}

type countingWriter struct {
	w       io.Writer
	onWrite func(int)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.onWrite(n)
	}
	return n, err
}
