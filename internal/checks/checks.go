// Package checks runs the preflight validations performed before a
// migration or an export touches the filesystem.
package checks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/tis24dev/savevault/internal/logging"
)

var (
	osStat     = os.Stat
	osMkdirAll = os.MkdirAll
	osRemove   = os.Remove
	createTemp = os.CreateTemp

	diskUsage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return disk.UsageWithContext(ctx, path)
	}
)

// CheckResult holds the result of a validation check
type CheckResult struct {
	Name    string
	Passed  bool
	Warning bool
	Message string
	Error   error
}

// CheckerConfig holds configuration for preflight checks
type CheckerConfig struct {
	BackupPath   string
	ExportPath   string
	MinFreeBytes uint64
	// CreateMissing creates absent directories instead of failing.
	CreateMissing bool
}

// Validate checks if the checker configuration is valid
func (c *CheckerConfig) Validate() error {
	if c.BackupPath == "" {
		return fmt.Errorf("backup path cannot be empty")
	}
	return nil
}

// Checker performs preflight validation checks
type Checker struct {
	logger *logging.Logger
	config *CheckerConfig
}

// NewChecker creates a new preflight checker
func NewChecker(logger *logging.Logger, config *CheckerConfig) *Checker {
	return &Checker{
		logger: logging.OrDefault(logger).With("checks"),
		config: config,
	}
}

// RunAllChecks performs every check and returns all results. The error is
// non-nil when a blocking check failed.
func (c *Checker) RunAllChecks(ctx context.Context) ([]CheckResult, error) {
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	c.logger.Debug("Running preflight checks")

	var results []CheckResult

	dirResult := c.CheckDirectories()
	results = append(results, dirResult)
	if !dirResult.Passed {
		return results, fmt.Errorf("directory check failed: %s", dirResult.Message)
	}

	results = append(results, c.CheckWritable(c.config.BackupPath))

	for _, path := range []string{c.config.BackupPath, c.config.ExportPath} {
		if path == "" {
			continue
		}
		results = append(results, c.CheckDestination(ctx, path, c.config.MinFreeBytes))
	}

	for _, r := range results {
		if !r.Passed {
			return results, fmt.Errorf("%s check failed: %s", r.Name, r.Message)
		}
	}
	c.logger.Debug("All preflight checks passed")
	return results, nil
}

// CheckDirectories verifies the configured directories exist (or creates them
// when CreateMissing is set).
func (c *Checker) CheckDirectories() CheckResult {
	result := CheckResult{Name: "Directories"}

	for _, dir := range []string{c.config.BackupPath, c.config.ExportPath} {
		if dir == "" {
			continue
		}
		dir = filepath.Clean(dir)
		info, err := osStat(dir)
		if err == nil {
			if !info.IsDir() {
				result.Error = fmt.Errorf("required path is not a directory: %s", dir)
				result.Message = result.Error.Error()
				return result
			}
			continue
		}
		if !os.IsNotExist(err) {
			result.Error = fmt.Errorf("failed to stat directory %s: %w", dir, err)
			result.Message = result.Error.Error()
			return result
		}
		if !c.config.CreateMissing {
			c.logger.Debug("Directory %s does not exist yet", dir)
			continue
		}
		if err := osMkdirAll(dir, 0o755); err != nil {
			result.Error = fmt.Errorf("failed to create directory %s: %w", dir, err)
			result.Message = result.Error.Error()
			return result
		}
		c.logger.Info("Created missing directory: %s", dir)
	}

	result.Passed = true
	result.Message = "All configured directories are usable"
	return result
}

// CheckWritable verifies a file can be created in dir. A missing directory
// passes with a warning.
func (c *Checker) CheckWritable(dir string) CheckResult {
	result := CheckResult{Name: "Permissions"}
	if _, err := osStat(dir); os.IsNotExist(err) {
		result.Passed = true
		result.Warning = true
		result.Message = fmt.Sprintf("%s does not exist yet", dir)
		return result
	}

	f, err := createTemp(dir, ".savevault-check-*")
	if err != nil {
		result.Error = fmt.Errorf("cannot write to %s: %w", dir, err)
		result.Message = result.Error.Error()
		return result
	}
	name := f.Name()
	f.Close()
	if err := osRemove(name); err != nil {
		c.logger.Debug("Failed to remove write-test file %s: %v", name, err)
	}

	result.Passed = true
	result.Message = fmt.Sprintf("%s is writable", dir)
	return result
}

// CheckDestination compares the free space available to path with need.
// A shortfall is reported as a warning, not a failure: the data may already
// live on the same filesystem.
func (c *Checker) CheckDestination(ctx context.Context, path string, need uint64) CheckResult {
	result := CheckResult{Name: "Disk Space"}

	free, err := DiskSpace(ctx, path)
	if err != nil {
		result.Passed = true
		result.Warning = true
		result.Error = err
		result.Message = fmt.Sprintf("free space unknown for %s: %v", path, err)
		c.logger.Warning("%s", result.Message)
		return result
	}

	result.Passed = true
	if free < need {
		result.Warning = true
		result.Message = fmt.Sprintf("%s has %s free, %s needed", path, humanize.IBytes(free), humanize.IBytes(need))
		c.logger.Warning("%s", result.Message)
		return result
	}
	result.Message = fmt.Sprintf("%s has %s free", path, humanize.IBytes(free))
	c.logger.Debug("%s", result.Message)
	return result
}

// DiskSpace returns the bytes available to unprivileged users on the
// filesystem holding path. A path that does not exist yet is measured on its
// nearest existing ancestor.
func DiskSpace(ctx context.Context, path string) (uint64, error) {
	target, err := existingAncestor(path)
	if err != nil {
		return 0, err
	}
	usage, err := diskUsage(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", target, err)
	}
	return usage.Free, nil
}

func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := osStat(abs); err == nil {
			return abs, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		abs = parent
	}
}
