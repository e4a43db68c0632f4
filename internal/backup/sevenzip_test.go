package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/types"
)

func quietLogger() *logging.Logger {
	logger := logging.New(types.LogLevelDebug, false)
	logger.SetOutput(io.Discard)
	return logger
}

// shellDeps runs script through sh instead of 7-Zip; the 7-Zip arguments
// are available to the script as $1...
func shellDeps(script string) ArchiverDeps {
	return ArchiverDeps{
		LookPath: func(name string) (string, error) { return "/usr/bin/" + name, nil },
		CommandContext: func(ctx context.Context, _ string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "sh", append([]string{"-c", script, "sh"}, args...)...)
		},
	}
}

func TestReadProgress(t *testing.T) {
	stream := "\n  0%\b\b\b\b  5% 1 + a\b\b\b\b\b\b\b\b\b 40%\r100%\nEverything is Ok\n"
	var got []int
	readProgress(strings.NewReader(stream), func(p int) { got = append(got, p) })
	want := []int{0, 5, 40, 100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("percents = %v, want %v", got, want)
	}
}

func TestArgs(t *testing.T) {
	got := Args("/out/x.gsm", []string{"custom_entries.json", "1001/2024-01-01_10-00"})
	want := []string{"a", "-y", "-r", "-bsp1", "-bso0", "/out/x.gsm", "custom_entries.json", "1001/2024-01-01_10-00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Args = %v", got)
	}
}

func TestBinaryResolution(t *testing.T) {
	s := NewSevenZip(quietLogger(), "").WithDeps(ArchiverDeps{
		LookPath: func(name string) (string, error) {
			if name == "7za" {
				return "/opt/7za", nil
			}
			return "", exec.ErrNotFound
		},
	})
	bin, err := s.Binary()
	if err != nil || bin != "/opt/7za" {
		t.Fatalf("Binary = %q, %v", bin, err)
	}

	none := NewSevenZip(quietLogger(), "").WithDeps(ArchiverDeps{
		LookPath: func(string) (string, error) { return "", exec.ErrNotFound },
	})
	if _, err := none.Binary(); !errors.Is(err, ErrSevenZipNotFound) {
		t.Fatalf("err = %v, want ErrSevenZipNotFound", err)
	}

	missing := NewSevenZip(quietLogger(), filepath.Join(t.TempDir(), "7zz"))
	if _, err := missing.Binary(); !errors.Is(err, ErrSevenZipNotFound) {
		t.Fatalf("err = %v, want ErrSevenZipNotFound", err)
	}
}

func TestCompressRunsInWorkDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "x.gsm")
	script := `out="$6"; shift 6
printf '  5%%\b\b\b\b 40%%\r100%%\n'
{ pwd -P; printf '%s\n' "$@"; } > "$out"`

	s := NewSevenZip(quietLogger(), "").WithDeps(shellDeps(script))
	var percents []int
	paths := []string{"custom_entries.json", "1001/2024-01-01_10-00"}
	if err := s.Compress(context.Background(), root, out, paths, func(p int) { percents = append(percents, p) }); err != nil {
		t.Fatalf("Compress error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	realRoot, _ := filepath.EvalSymlinks(root)
	if lines[0] != realRoot {
		t.Fatalf("working dir = %q, want %q", lines[0], realRoot)
	}
	if !reflect.DeepEqual(lines[1:], paths) {
		t.Fatalf("paths = %v, want %v", lines[1:], paths)
	}
	if !reflect.DeepEqual(percents, []int{5, 40, 100}) {
		t.Fatalf("percents = %v", percents)
	}

	cwd, _ := os.Getwd()
	if cwd == root || cwd == realRoot {
		t.Fatal("process working directory was changed")
	}
}

func TestCompressFailureCarriesStderr(t *testing.T) {
	s := NewSevenZip(quietLogger(), "").WithDeps(shellDeps(`echo "ERROR: disk full" >&2; exit 2`))
	err := s.Compress(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "x.gsm"), []string{"a"}, nil)

	var cerr *CompressionError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *CompressionError", err)
	}
	if !strings.Contains(cerr.Error(), "disk full") {
		t.Fatalf("error %q does not carry stderr", cerr.Error())
	}
}

func TestCompressRejectsEmptyList(t *testing.T) {
	s := NewSevenZip(quietLogger(), "").WithDeps(shellDeps("exit 0"))
	if err := s.Compress(context.Background(), t.TempDir(), "x.gsm", nil, nil); err == nil {
		t.Fatal("expected error for empty path list")
	}
}
