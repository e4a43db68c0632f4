package backup

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/tis24dev/savevault/internal/logging"
)

var lookPath = exec.LookPath

// SevenZipCandidates are the executable names looked up on PATH, in order.
var SevenZipCandidates = []string{"7zz", "7za", "7z"}

// ErrSevenZipNotFound is returned when no 7-Zip executable can be located.
var ErrSevenZipNotFound = errors.New("7-Zip executable not found")

// ArchiverDeps groups external dependencies used by SevenZip.
type ArchiverDeps struct {
	LookPath       func(string) (string, error)
	CommandContext func(context.Context, string, ...string) *exec.Cmd
}

func defaultArchiverDeps() ArchiverDeps {
	return ArchiverDeps{
		LookPath:       lookPath,
		CommandContext: exec.CommandContext,
	}
}

// CompressionError represents a failure of the external compressor.
type CompressionError struct {
	Algorithm string
	Err       error
	Stderr    string
}

func (e *CompressionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s compression failed: %v: %s", e.Algorithm, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s compression failed: %v", e.Algorithm, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// Compressor packs relative paths from a working directory into an archive.
type Compressor interface {
	Compress(ctx context.Context, workDir, archivePath string, paths []string, onPercent func(int)) error
}

// SevenZip drives the 7-Zip command line tool.
type SevenZip struct {
	logger *logging.Logger
	binary string
	deps   ArchiverDeps
}

// NewSevenZip creates a SevenZip archiver. binary may be empty, an executable
// name, or a path; it is resolved on first use.
func NewSevenZip(logger *logging.Logger, binary string) *SevenZip {
	return &SevenZip{
		logger: logging.OrDefault(logger).With("7z"),
		binary: strings.TrimSpace(binary),
		deps:   defaultArchiverDeps(),
	}
}

// WithDeps replaces the process dependencies, returning the archiver.
func (s *SevenZip) WithDeps(deps ArchiverDeps) *SevenZip {
	s.deps = deps
	return s
}

func (s *SevenZip) cmd(ctx context.Context, name string, args ...string) *exec.Cmd {
	if s.deps.CommandContext != nil {
		return s.deps.CommandContext(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...)
}

func (s *SevenZip) findPath(name string) (string, error) {
	if s.deps.LookPath != nil {
		return s.deps.LookPath(name)
	}
	return exec.LookPath(name)
}

// Binary resolves the executable to run: the configured binary first, then
// each of SevenZipCandidates on PATH.
func (s *SevenZip) Binary() (string, error) {
	if s.binary != "" {
		if strings.ContainsRune(s.binary, filepath.Separator) {
			if _, err := os.Stat(s.binary); err != nil {
				return "", fmt.Errorf("%w: %v", ErrSevenZipNotFound, err)
			}
			return s.binary, nil
		}
		path, err := s.findPath(s.binary)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSevenZipNotFound, s.binary, err)
		}
		return path, nil
	}
	for _, name := range SevenZipCandidates {
		if path, err := s.findPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrSevenZipNotFound, strings.Join(SevenZipCandidates, ", "))
}

// Args returns the command line used to add paths to archivePath.
func Args(archivePath string, paths []string) []string {
	args := []string{"a", "-y", "-r", "-bsp1", "-bso0", archivePath}
	return append(args, paths...)
}

// Compress runs 7-Zip with workDir as the working directory of the child
// process, so that archive entries are relative to workDir. Percentages read
// from the progress stream are passed to onPercent.
func (s *SevenZip) Compress(ctx context.Context, workDir, archivePath string, paths []string, onPercent func(int)) error {
	if len(paths) == 0 {
		return fmt.Errorf("nothing to archive")
	}
	bin, err := s.Binary()
	if err != nil {
		return err
	}

	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return fmt.Errorf("resolve archive path: %w", err)
	}

	cmd := s.cmd(ctx, bin, Args(absArchive, paths)...)
	cmd.Dir = workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture 7z output: %w", err)
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	s.logger.Debug("Running %s in %s (%d entries)", bin, workDir, len(paths))
	if err := cmd.Start(); err != nil {
		return &CompressionError{Algorithm: "7z", Err: err}
	}

	readProgress(stdout, onPercent)

	if err := cmd.Wait(); err != nil {
		return &CompressionError{Algorithm: "7z", Err: err, Stderr: stderr.String()}
	}
	s.logger.Debug("7z finished: %s", absArchive)
	return nil
}

var percentPattern = regexp.MustCompile(`(\d{1,3})%`)

// readProgress consumes a 7-Zip progress stream. 7-Zip redraws its progress
// line with backspaces or carriage returns, so all of them end a token.
func readProgress(r io.Reader, onPercent func(int)) {
	scanner := bufio.NewScanner(r)
	scanner.Split(splitProgress)
	for scanner.Scan() {
		if onPercent == nil {
			continue
		}
		for _, m := range percentPattern.FindAllStringSubmatch(scanner.Text(), -1) {
			if p, err := strconv.Atoi(m[1]); err == nil && p <= 100 {
				onPercent(p)
			}
		}
	}
	// Drain whatever is left so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func splitProgress(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n\b"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
