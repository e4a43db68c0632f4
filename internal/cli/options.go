// Package cli holds the flags and exit handling shared by every savevault command.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tis24dev/savevault/internal/config"
	"github.com/tis24dev/savevault/internal/types"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvSettings = "SAVEVAULT_SETTINGS"
	EnvSevenZip = "SAVEVAULT_7Z"
	EnvLogLevel = "SAVEVAULT_LOG_LEVEL"
)

// GlobalOptions are the persistent flags of the root command.
type GlobalOptions struct {
	SettingsPath string
	LogLevelName string
	LogFile      string
	SevenZip     string
	MetricsDir   string
	NoColor      bool

	// SettingsSource records where SettingsPath came from, for diagnostics.
	SettingsSource string
}

// Bind registers the options on fs.
func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.SettingsPath, "settings", "", "path to the settings JSON file")
	fs.StringVarP(&o.LogLevelName, "log-level", "l", "", "log level (debug|info|warning|error|critical)")
	fs.StringVar(&o.LogFile, "log-file", "", "also write logs to this file")
	fs.StringVar(&o.SevenZip, "7z", "", "7-Zip executable name or path")
	fs.StringVar(&o.MetricsDir, "metrics-dir", "", "write Prometheus textfile metrics into this directory")
	fs.BoolVar(&o.NoColor, "no-color", false, "disable colored output")
}

// Resolve fills unset options from the environment and defaults, then
// validates them.
func (o *GlobalOptions) Resolve(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	switch {
	case strings.TrimSpace(o.SettingsPath) != "":
		o.SettingsSource = "specified via --settings flag"
	case strings.TrimSpace(getenv(EnvSettings)) != "":
		o.SettingsPath = strings.TrimSpace(getenv(EnvSettings))
		o.SettingsSource = "from " + EnvSettings
	default:
		o.SettingsPath = config.DefaultSettingsPath()
		o.SettingsSource = "default path"
	}
	o.SettingsPath = filepath.Clean(o.SettingsPath)

	if o.SevenZip == "" {
		o.SevenZip = strings.TrimSpace(getenv(EnvSevenZip))
	}
	if o.LogLevelName == "" {
		o.LogLevelName = strings.TrimSpace(getenv(EnvLogLevel))
	}
	if o.LogLevelName != "" && !validLogLevel(o.LogLevelName) {
		return WithExit(types.ExitConfigError, fmt.Errorf("invalid log level %q", o.LogLevelName))
	}
	if o.MetricsDir != "" {
		if info, err := os.Stat(o.MetricsDir); err != nil || !info.IsDir() {
			return WithExit(types.ExitConfigError, fmt.Errorf("metrics directory %s is not a directory", o.MetricsDir))
		}
	}
	return nil
}

// LogLevel returns the parsed level, info when unset.
func (o *GlobalOptions) LogLevel() types.LogLevel {
	if o.LogLevelName == "" {
		return types.LogLevelInfo
	}
	return types.ParseLogLevel(strings.ToLower(o.LogLevelName))
}

func validLogLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warning", "warn", "error", "critical", "none", "0", "1", "2", "3", "4", "5":
		return true
	}
	return false
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode implements the exit coder convention used by main.
func (e *ExitError) ExitCode() int { return e.Code.Int() }

// WithExit attaches code to err. A nil err stays nil.
func WithExit(code types.ExitCode, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCodeOf returns the code attached to err, ExitGenericError when none
// is attached and ExitSuccess for nil.
func ExitCodeOf(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return types.ExitGenericError
}
