package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tis24dev/savevault/internal/logging"
)

// OperationMetrics is the snapshot of one migration or export run exported
// as Prometheus metrics.
type OperationMetrics struct {
	Operation string
	RunID     string
	Version   string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Success     bool
	ErrorCount  int
	Bytes       int64
	Files       int
	ArchiveSize int64
}

// PrometheusExporter writes operation metrics in Prometheus textfile format for node_exporter.
type PrometheusExporter struct {
	textfileDir string
	logger      *logging.Logger
}

// NewPrometheusExporter creates a new PrometheusExporter using the provided directory.
func NewPrometheusExporter(textfileDir string, logger *logging.Logger) *PrometheusExporter {
	return &PrometheusExporter{
		textfileDir: strings.TrimRight(textfileDir, "/"),
		logger:      logger,
	}
}

// FileName returns the textfile written for operation.
func FileName(operation string) string {
	return "savevault_" + strings.ReplaceAll(operation, "-", "_") + ".prom"
}

// Export writes the given metrics snapshot to savevault_<operation>.prom in textfileDir.
func (pe *PrometheusExporter) Export(m *OperationMetrics) error {
	if pe == nil || m == nil {
		return nil
	}

	if pe.textfileDir == "" {
		return fmt.Errorf("metrics textfile directory is empty")
	}
	if m.Operation == "" {
		return fmt.Errorf("metrics operation name is empty")
	}

	if err := os.MkdirAll(pe.textfileDir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory %s: %w", pe.textfileDir, err)
	}

	finalPath := filepath.Join(pe.textfileDir, FileName(m.Operation))
	tmpPath := finalPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create metrics file %s: %w", tmpPath, err)
	}
	defer f.Close()

	labels := fmt.Sprintf("operation=%q", m.Operation)

	writeMetric := func(name, help, format string, value any) {
		fmt.Fprintf(f, "# HELP %s %s\n", name, help)
		fmt.Fprintf(f, "# TYPE %s gauge\n", name)
		fmt.Fprintf(f, "%s{%s} "+format+"\n", name, labels, value)
	}

	endTime := m.EndTime
	if endTime.IsZero() && !m.StartTime.IsZero() {
		endTime = m.StartTime.Add(m.Duration)
	}

	success := 0
	if m.Success {
		success = 1
	}

	writeMetric("savevault_start_time_seconds", "Unix timestamp of operation start", "%d", m.StartTime.Unix())
	writeMetric("savevault_end_time_seconds", "Unix timestamp of operation end", "%d", endTime.Unix())
	writeMetric("savevault_duration_seconds", "Duration of last operation in seconds", "%.2f", m.Duration.Seconds())
	writeMetric("savevault_success", "Whether the last operation completed without errors (1=yes)", "%d", success)
	writeMetric("savevault_errors_total", "Number of item errors in last operation", "%d", m.ErrorCount)
	writeMetric("savevault_bytes", "Bytes processed by last operation", "%d", m.Bytes)
	writeMetric("savevault_files_total", "Files processed by last operation", "%d", m.Files)
	if m.ArchiveSize > 0 {
		writeMetric("savevault_archive_size_bytes", "Size of last export archive in bytes", "%d", m.ArchiveSize)
	}

	fmt.Fprintf(f, "# HELP savevault_info Static information about the last run\n")
	fmt.Fprintf(f, "# TYPE savevault_info gauge\n")
	fmt.Fprintf(f, "savevault_info{%s,run_id=%q,version=%q} 1\n", labels, m.RunID, m.Version)

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync metrics file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename metrics file to %s: %w", finalPath, err)
	}

	if pe.logger != nil {
		pe.logger.Debug("Prometheus metrics exported to %s", finalPath)
	}

	return nil
}
