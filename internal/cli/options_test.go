package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/tis24dev/savevault/internal/config"
	"github.com/tis24dev/savevault/internal/types"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestBindParsesFlags(t *testing.T) {
	var opts GlobalOptions
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.Bind(fs)

	err := fs.Parse([]string{"--settings", "/tmp/s.json", "-l", "debug", "--7z", "/opt/7zz", "--no-color", "--log-file", "/tmp/x.log"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.SettingsPath != "/tmp/s.json" || opts.LogLevelName != "debug" || opts.SevenZip != "/opt/7zz" || !opts.NoColor || opts.LogFile != "/tmp/x.log" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestResolveSettingsPathPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		env        map[string]string
		wantPath   string
		wantSource string
	}{
		{"flag wins", "/flag/s.json", map[string]string{EnvSettings: "/env/s.json"}, "/flag/s.json", "specified via --settings flag"},
		{"env used", "", map[string]string{EnvSettings: "/env/s.json"}, "/env/s.json", "from " + EnvSettings},
		{"default", "", nil, filepath.Clean(config.DefaultSettingsPath()), "default path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := GlobalOptions{SettingsPath: tt.flag}
			if err := opts.Resolve(env(tt.env)); err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if opts.SettingsPath != tt.wantPath {
				t.Fatalf("SettingsPath=%q; want %q", opts.SettingsPath, tt.wantPath)
			}
			if opts.SettingsSource != tt.wantSource {
				t.Fatalf("SettingsSource=%q; want %q", opts.SettingsSource, tt.wantSource)
			}
		})
	}
}

func TestResolveReadsSevenZipAndLogLevelFromEnv(t *testing.T) {
	opts := GlobalOptions{SettingsPath: "/s.json"}
	if err := opts.Resolve(env(map[string]string{EnvSevenZip: "/usr/bin/7za", EnvLogLevel: "warning"})); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if opts.SevenZip != "/usr/bin/7za" {
		t.Fatalf("SevenZip=%q", opts.SevenZip)
	}
	if opts.LogLevel() != types.LogLevelWarning {
		t.Fatalf("LogLevel=%v", opts.LogLevel())
	}

	explicit := GlobalOptions{SettingsPath: "/s.json", SevenZip: "7zz"}
	if err := explicit.Resolve(env(map[string]string{EnvSevenZip: "/usr/bin/7za"})); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if explicit.SevenZip != "7zz" {
		t.Fatalf("flag value must win over env, got %q", explicit.SevenZip)
	}
}

func TestResolveRejectsBadLogLevel(t *testing.T) {
	opts := GlobalOptions{SettingsPath: "/s.json", LogLevelName: "loud"}
	err := opts.Resolve(env(nil))
	if ExitCodeOf(err) != types.ExitConfigError {
		t.Fatalf("err=%v; want config exit code", err)
	}
}

func TestResolveRejectsMissingMetricsDir(t *testing.T) {
	opts := GlobalOptions{SettingsPath: "/s.json", MetricsDir: filepath.Join(t.TempDir(), "missing")}
	if err := opts.Resolve(env(nil)); ExitCodeOf(err) != types.ExitConfigError {
		t.Fatalf("err=%v; want config exit code", err)
	}

	ok := GlobalOptions{SettingsPath: "/s.json", MetricsDir: t.TempDir()}
	if err := ok.Resolve(env(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogLevelDefaultsToInfo(t *testing.T) {
	if got := (&GlobalOptions{}).LogLevel(); got != types.LogLevelInfo {
		t.Fatalf("LogLevel=%v; want info", got)
	}
	if got := (&GlobalOptions{LogLevelName: "DEBUG"}).LogLevel(); got != types.LogLevelDebug {
		t.Fatalf("LogLevel=%v; want debug", got)
	}
}

func TestExitCodeOf(t *testing.T) {
	base := errors.New("boom")
	if ExitCodeOf(nil) != types.ExitSuccess {
		t.Fatalf("nil should map to success")
	}
	if ExitCodeOf(base) != types.ExitGenericError {
		t.Fatalf("plain error should map to generic")
	}
	wrapped := fmt.Errorf("export: %w", WithExit(types.ExitCompressionError, base))
	if ExitCodeOf(wrapped) != types.ExitCompressionError {
		t.Fatalf("wrapped exit error lost its code")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("ExitError must unwrap to the cause")
	}
	if WithExit(types.ExitBusyError, nil) != nil {
		t.Fatalf("WithExit(nil) must stay nil")
	}
	var ee *ExitError
	if !errors.As(wrapped, &ee) || ee.ExitCode() != int(types.ExitCompressionError) {
		t.Fatalf("ExitCode() mismatch")
	}
}
