package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tis24dev/savevault/internal/backup"
	"github.com/tis24dev/savevault/internal/checks"
	"github.com/tis24dev/savevault/internal/cli"
	"github.com/tis24dev/savevault/internal/config"
	"github.com/tis24dev/savevault/internal/fsops"
	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/metrics"
	"github.com/tis24dev/savevault/internal/migrate"
	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/orchestrator"
	"github.com/tis24dev/savevault/internal/types"
	"github.com/tis24dev/savevault/internal/version"
)

const settingsFlushTimeout = 10 * time.Second

// appEnv holds the services shared by all commands. It is populated by the
// root command's PersistentPreRunE, after flags are parsed.
type appEnv struct {
	opts       cli.GlobalOptions
	keepFailed bool
	getenv     func(string) string

	bootstrap *logging.BootstrapLogger
	logger    *logging.Logger
	store     *config.Store
	sink      *notify.Fanout
	orch      *orchestrator.Orchestrator
}

func newAppEnv(bootstrap *logging.BootstrapLogger) *appEnv {
	return &appEnv{bootstrap: bootstrap, getenv: os.Getenv}
}

func (e *appEnv) setup(cmd *cobra.Command) error {
	if err := e.opts.Resolve(e.getenv); err != nil {
		return err
	}

	useColor := !e.opts.NoColor && cmd.ErrOrStderr() == os.Stderr && logging.ColorSupported(os.Stderr)
	e.logger = logging.New(e.opts.LogLevel(), useColor)
	e.logger.SetOutput(cmd.ErrOrStderr())
	if e.opts.LogFile != "" {
		if err := e.logger.OpenLogFile(e.opts.LogFile); err != nil {
			return cli.WithExit(types.ExitConfigError, fmt.Errorf("open log file: %w", err))
		}
	}
	logging.SetDefaultLogger(e.logger)
	e.bootstrap.SetLevel(e.opts.LogLevel())
	e.bootstrap.Flush(e.logger)
	e.logger.Debug("Settings file: %s (%s)", e.opts.SettingsPath, e.opts.SettingsSource)

	e.store = config.NewStore(e.opts.SettingsPath, e.logger, logEffects{logger: e.logger.With("settings")})
	e.store.Load()

	e.sink = notify.NewFanout(notify.NewLogSink(e.logger), notify.NewTerminalProgress(cmd.ErrOrStderr()))

	var exporter *metrics.PrometheusExporter
	if e.opts.MetricsDir != "" {
		exporter = metrics.NewPrometheusExporter(e.opts.MetricsDir, e.logger)
	}

	engine := migrate.NewEngine(migrate.Options{
		Logger: e.logger,
		Sizer:  fsops.NewAccountant(e.logger, fsops.DefaultFSTimeout),
		FreeSpace: func(path string) (uint64, error) {
			return checks.DiskSpace(cmd.Context(), path)
		},
		KeepFailedSources: e.keepFailed,
	})
	archiver := backup.NewExporter(e.logger, backup.ExporterConfig{
		Compressor: backup.NewSevenZip(e.logger, e.opts.SevenZip),
		Version:    version.String(),
	})

	e.orch = orchestrator.New(orchestrator.Deps{
		Logger:   e.logger,
		Settings: e.store,
		Migrator: engine,
		Exporter: archiver,
		Sink:     e.sink,
		Metrics:  exporter,
		Version:  version.String(),
	})
	return nil
}

// close drains pending settings writes and releases the log file.
func (e *appEnv) close() {
	if e.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), settingsFlushTimeout)
		if err := e.store.Flush(ctx); err != nil && e.logger != nil {
			e.logger.Warning("Pending settings writes not flushed: %v", err)
		}
		cancel()
		e.store.Close()
		e.store = nil
	}
	if e.logger != nil && e.logger.GetLogFilePath() != "" {
		_ = e.logger.CloseLogFile()
	}
}

// logEffects reacts to persisted setting changes. The CLI has no open
// windows, so reactions are logged.
type logEffects struct {
	logger *logging.Logger
}

func (l logEffects) ApplyTheme(theme string) {
	l.logger.Info("Theme set to %s", theme)
}

func (l logEffects) RefreshBackupTable() {
	l.logger.Debug("Install directories changed")
}

func (l logEffects) ChangeLanguage(_ context.Context, language string) error {
	l.logger.Info("Language set to %s", language)
	return nil
}

func (l logEffects) ApplyLanguage() {}

func (l logEffects) RebuildMenu() {}
