// Package orchestrator runs the long-lived operations (migration, export,
// settings updates) behind per-operation permits and reports their outcome
// to the attached sinks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/tis24dev/savevault/internal/backup"
	"github.com/tis24dev/savevault/internal/config"
	"github.com/tis24dev/savevault/internal/fsops"
	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/metrics"
	"github.com/tis24dev/savevault/internal/migrate"
	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/storage"
	"github.com/tis24dev/savevault/internal/types"
)

// SettingsStore is the subset of config.Store used by the orchestrator.
type SettingsStore interface {
	Get() config.Settings
	Set(key string, value any) <-chan error
}

// Migrator moves a backup root.
type Migrator interface {
	Migrate(ctx context.Context, src, dst string, progress *notify.Reporter) (migrate.Result, error)
}

// Exporter writes export archives.
type Exporter interface {
	Export(ctx context.Context, opts backup.ExportOptions, progress *notify.Reporter) (*backup.ExportResult, error)
}

// Deps groups orchestrator dependencies. Sink and Metrics may be nil.
type Deps struct {
	Logger   *logging.Logger
	Settings SettingsStore
	Migrator Migrator
	Exporter Exporter
	Sink     notify.Sink
	Metrics  *metrics.PrometheusExporter
	Clock    clock.Clock
	Version  string
	// NewRunID overrides the run identifier generator.
	NewRunID func() string
}

// Orchestrator coordinates migrations and exports.
type Orchestrator struct {
	logger   *logging.Logger
	coord    *Coordinator
	settings SettingsStore
	migrator Migrator
	exporter Exporter
	sink     notify.Sink
	metrics  *metrics.PrometheusExporter
	clock    clock.Clock
	version  string
	newRunID func() string
}

// Titles shown next to progress bars and alerts.
const (
	TitleMigrate         = "Migrating backups"
	TitleExport          = "Exporting backups"
	TitleCopy            = "Copying backups"
	AlertMigrateSuccess  = "Backup migration completed"
	AlertMigrateErrors   = "Errors occurred during backup migration"
	AlertExportSuccess   = "Backups exported"
	AlertExportFailure   = "Error during export"
	AlertSettingRejected = "Setting not saved"
	AlertPruneFailures   = "Some old backups could not be deleted"
	AlertCopySuccess     = "Backups copied"
	AlertCopyFailure     = "Error during backup copy"
)

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = func() string { return uuid.New().String() }
	}
	sink := deps.Sink
	if sink == nil {
		sink = notify.NewLogSink(deps.Logger)
	}
	return &Orchestrator{
		logger:   logging.OrDefault(deps.Logger),
		coord:    NewCoordinator(),
		settings: deps.Settings,
		migrator: deps.Migrator,
		exporter: deps.Exporter,
		sink:     sink,
		metrics:  deps.Metrics,
		clock:    clk,
		version:  deps.Version,
		newRunID: newRunID,
	}
}

// Coordinator exposes the permit table, e.g. for status reporting.
func (o *Orchestrator) Coordinator() *Coordinator {
	return o.coord
}

// MigrateBackups moves the configured backup root to dest. The backupPath
// setting is switched to dest once the move has been attempted, whether or
// not individual items failed, and a restore-table refresh is requested.
// ErrBusy is returned while another migration runs.
func (o *Orchestrator) MigrateBackups(ctx context.Context, dest string) (*migrate.Result, error) {
	permit, err := o.coord.Acquire(types.OperationMigrate)
	if err != nil {
		o.logger.Warning("Migration request ignored: %v", err)
		return nil, err
	}
	defer permit.Release()

	dest, err = absDestination(dest)
	if err != nil {
		return nil, err
	}

	runID := o.newRunID()
	src := o.settings.Get().BackupPath
	o.logger.Step("Migrating backups from %s to %s", src, dest)

	start := o.clock.Now()
	reporter := notify.NewReporter(o.sink, types.OperationMigrate.ProgressID(), TitleMigrate, runID)
	res, err := o.migrator.Migrate(ctx, src, dest, reporter)
	if err != nil && !res.SourceExisted {
		o.sink.OnAlert(notify.Alert{Severity: types.SeverityModal, Title: AlertMigrateErrors, Detail: err.Error()})
		return nil, err
	}

	o.commitBackupPath(dest)
	o.sink.RefreshRestoreTable()

	if res.SourceExisted {
		switch {
		case err != nil:
			o.sink.OnAlert(notify.Alert{Severity: types.SeverityModal, Title: AlertMigrateErrors,
				Detail: err.Error(), Details: res.Messages()})
		case !res.OK():
			o.sink.OnAlert(notify.Alert{Severity: types.SeverityModal, Title: AlertMigrateErrors, Details: res.Messages()})
		default:
			o.sink.OnAlert(notify.Alert{Severity: types.SeveritySuccess, Title: AlertMigrateSuccess,
				Detail: fmt.Sprintf("%d files, %s", res.Files, humanize.IBytes(uint64(res.MovedBytes)))})
		}
	}

	end := o.clock.Now()
	o.exportMetrics(&metrics.OperationMetrics{
		Operation:  types.OperationMigrate.ProgressID(),
		RunID:      runID,
		StartTime:  start,
		EndTime:    end,
		Duration:   end.Sub(start),
		Success:    err == nil && res.OK(),
		ErrorCount: len(res.Errors),
		Bytes:      res.MovedBytes,
		Files:      res.Files,
	})
	return &res, err
}

// CopyBackups copies the configured backup root to dest and switches the
// backupPath setting to dest once the copy is complete. The old folder is
// left untouched; a failed copy leaves the setting unchanged. It shares the
// migration permit.
func (o *Orchestrator) CopyBackups(ctx context.Context, dest string) error {
	permit, err := o.coord.Acquire(types.OperationMigrate)
	if err != nil {
		o.logger.Warning("Copy request ignored: %v", err)
		return err
	}
	defer permit.Release()

	dest, err = absDestination(dest)
	if err != nil {
		return err
	}
	src := o.settings.Get().BackupPath
	if migrate.IsWithin(src, dest) {
		return fmt.Errorf("destination %s is inside source %s", dest, src)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		o.logger.Info("Source %s does not exist, nothing to copy", src)
		o.commitBackupPath(dest)
		o.sink.RefreshRestoreTable()
		return nil
	}

	runID := o.newRunID()
	o.logger.Step("Copying backups from %s to %s", src, dest)
	start := o.clock.Now()
	reporter := notify.NewReporter(o.sink, types.OperationMigrate.ProgressID(), TitleCopy, runID)
	reporter.Start()
	copyErr := fsops.CopyFolder(src, dest)
	if copyErr == nil {
		reporter.Percent(100)
	}
	reporter.End()

	var size int64
	if copyErr != nil {
		o.sink.OnAlert(notify.Alert{Severity: types.SeverityModal, Title: AlertCopyFailure, Detail: copyErr.Error()})
	} else {
		o.commitBackupPath(dest)
		o.sink.RefreshRestoreTable()
		size = fsops.Size(ctx, dest, false)
		o.sink.OnAlert(notify.Alert{Severity: types.SeveritySuccess, Title: AlertCopySuccess,
			Detail: fmt.Sprintf("%s copied to %s", humanize.IBytes(uint64(size)), dest)})
	}

	end := o.clock.Now()
	errorCount := 0
	if copyErr != nil {
		errorCount = 1
	}
	o.exportMetrics(&metrics.OperationMetrics{
		Operation:  "copy",
		RunID:      runID,
		StartTime:  start,
		EndTime:    end,
		Duration:   end.Sub(start),
		Success:    copyErr == nil,
		ErrorCount: errorCount,
		Bytes:      size,
	})
	return copyErr
}

// absDestination trims dest and makes it absolute, so the committed
// backupPath does not depend on the working directory.
func absDestination(dest string) (string, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", fmt.Errorf("destination path cannot be empty")
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve destination %s: %w", dest, err)
	}
	return abs, nil
}

func (o *Orchestrator) commitBackupPath(dest string) {
	if err := <-o.settings.Set(config.KeyBackupPath, dest); err != nil {
		o.logger.Error("Failed to save backup path %s: %v", dest, err)
		return
	}
	o.logger.Info("Backup path set to %s", dest)
}

// ExportRequest describes one export. A zero Count uses the maxBackups
// setting and an empty Destination uses the exportPath setting.
type ExportRequest struct {
	Count       int
	Destination string
	Recipients  []age.Recipient
}

// ExportBackups exports the newest snapshots of every item. ErrBusy is
// returned while another export runs.
func (o *Orchestrator) ExportBackups(ctx context.Context, req ExportRequest) (*backup.ExportResult, error) {
	permit, err := o.coord.Acquire(types.OperationExport)
	if err != nil {
		o.logger.Warning("Export request ignored: %v", err)
		return nil, err
	}
	defer permit.Release()

	current := o.settings.Get()
	if req.Count == 0 {
		req.Count = current.MaxBackups
	}
	if req.Destination == "" {
		req.Destination = current.ExportPath
	}
	if req.Destination == "" {
		err := errors.New("no export destination configured")
		o.sink.OnAlert(notify.Alert{Severity: types.SeverityModal, Title: AlertExportFailure, Detail: err.Error()})
		return nil, err
	}

	runID := o.newRunID()
	o.logger.Step("Exporting %d backups per item to %s", req.Count, req.Destination)

	start := o.clock.Now()
	reporter := notify.NewReporter(o.sink, types.OperationExport.ProgressID(), TitleExport, runID)
	res, err := o.exporter.Export(ctx, backup.ExportOptions{
		Root:        current.BackupPath,
		Count:       req.Count,
		Destination: req.Destination,
		Recipients:  req.Recipients,
	}, reporter)

	end := o.clock.Now()
	m := &metrics.OperationMetrics{
		Operation: types.OperationExport.ProgressID(),
		RunID:     runID,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Success:   err == nil,
	}
	if err != nil {
		o.logger.Error("An error occurred while exporting backups: %v", err)
		o.sink.OnAlert(notify.Alert{Severity: types.SeverityModal, Title: AlertExportFailure, Detail: err.Error()})
		m.ErrorCount = 1
		o.exportMetrics(m)
		return nil, err
	}

	m.ArchiveSize = res.Size
	m.Files = len(res.Manifest.Entries())
	o.exportMetrics(m)
	o.sink.OnAlert(notify.Alert{Severity: types.SeveritySuccess, Title: AlertExportSuccess, Detail: res.ArchivePath})
	return res, nil
}

// PruneRequest describes one retention pass. A simple policy with zero
// MaxBackups uses the maxBackups setting.
type PruneRequest struct {
	Retention storage.RetentionConfig
	DryRun    bool
}

// PruneBackups deletes the snapshots the retention policy does not keep. It
// holds the backup permit and refuses to run while a migration is moving the
// backup root.
func (o *Orchestrator) PruneBackups(ctx context.Context, req PruneRequest) (storage.PruneSummary, error) {
	if o.coord.Running(types.OperationMigrate) {
		return storage.PruneSummary{}, fmt.Errorf("cannot prune during a migration: %w", ErrBusy)
	}
	permit, err := o.coord.Acquire(types.OperationBackup)
	if err != nil {
		return storage.PruneSummary{}, err
	}
	defer permit.Release()

	current := o.settings.Get()
	cfg := req.Retention
	if cfg.Policy != storage.PolicyGFS && cfg.MaxBackups == 0 {
		cfg.MaxBackups = current.MaxBackups
	}

	start := o.clock.Now()
	summary, err := storage.NewLocal(current.BackupPath, o.logger, o.clock).Prune(ctx, cfg, req.DryRun)
	if err != nil {
		return summary, err
	}
	if summary.Failed > 0 {
		o.sink.OnAlert(notify.Alert{Severity: types.SeverityWarning, Title: AlertPruneFailures,
			Detail: fmt.Sprintf("%d snapshots could not be deleted", summary.Failed)})
	}
	if req.DryRun {
		return summary, nil
	}
	if summary.Deleted > 0 {
		o.sink.RefreshRestoreTable()
	}

	end := o.clock.Now()
	o.exportMetrics(&metrics.OperationMetrics{
		Operation:  "prune",
		RunID:      o.newRunID(),
		StartTime:  start,
		EndTime:    end,
		Duration:   end.Sub(start),
		Success:    summary.Failed == 0,
		ErrorCount: summary.Failed,
		Files:      summary.Deleted,
	})
	return summary, nil
}

// UpdateSetting validates and applies one setting. The returned channel
// reports the outcome of the asynchronous write.
func (o *Orchestrator) UpdateSetting(key string, value any) <-chan error {
	ch := o.settings.Set(key, value)
	out := make(chan error, 1)
	go func() {
		err := <-ch
		if err != nil && (errors.Is(err, config.ErrUnknownKey) || errors.Is(err, config.ErrInvalidValue)) {
			o.sink.OnAlert(notify.Alert{Severity: types.SeverityWarning, Title: AlertSettingRejected, Detail: err.Error()})
		}
		out <- err
		close(out)
	}()
	return out
}

func (o *Orchestrator) exportMetrics(m *metrics.OperationMetrics) {
	if o.metrics == nil {
		return
	}
	m.Version = o.version
	if err := o.metrics.Export(m); err != nil {
		o.logger.Warning("Failed to export metrics: %v", err)
	}
}

// StatusLine summarizes which operations are running.
func (o *Orchestrator) StatusLine() string {
	status := o.coord.Status()
	parts := make([]string, 0, len(types.AllOperations))
	for _, op := range types.AllOperations {
		state := "idle"
		if status[op] {
			state = "running"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", op, state))
	}
	return strings.Join(parts, " ")
}
