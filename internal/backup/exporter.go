// Package backup selects snapshots from a backup root and packs them into
// a single export archive.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/dustin/go-humanize"
	"github.com/juju/clock"

	"github.com/tis24dev/savevault/internal/logging"
	"github.com/tis24dev/savevault/internal/notify"
)

// ExportOptions configures one export.
type ExportOptions struct {
	Root        string
	Count       int
	Destination string
	// Recipients, when set, encrypt the finished archive to <archive>.age.
	Recipients []age.Recipient
}

// ExportResult describes a finished export.
type ExportResult struct {
	ArchivePath string
	Size        int64
	SHA256      string
	Manifest    *ArchiveManifest
	Encrypted   bool
	Duration    time.Duration
}

// Exporter builds export archives.
type Exporter struct {
	logger     *logging.Logger
	compressor Compressor
	clock      clock.Clock
	version    string
}

// ExporterConfig groups the collaborators of an Exporter.
type ExporterConfig struct {
	Compressor Compressor
	Clock      clock.Clock
	Version    string
}

// NewExporter creates an Exporter. A nil clock uses the wall clock.
func NewExporter(logger *logging.Logger, cfg ExporterConfig) *Exporter {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	logger = logging.OrDefault(logger).With("export")
	compressor := cfg.Compressor
	if compressor == nil {
		compressor = NewSevenZip(logger, "")
	}
	return &Exporter{logger: logger, compressor: compressor, clock: clk, version: cfg.Version}
}

// Export packs the newest opts.Count snapshots of every item under opts.Root
// into a timestamped archive in opts.Destination. Progress start and end
// markers are always emitted, on failure too. A partially written archive
// is removed when any step fails.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions, progress *notify.Reporter) (res *ExportResult, err error) {
	progress.Start()
	defer progress.End()

	started := e.clock.Now()

	manifest, err := BuildManifest(opts.Root, opts.Count)
	if err != nil {
		return nil, err
	}
	entries := manifest.Entries()
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w found in %s", ErrNoSnapshots, opts.Root)
	}
	e.logger.Info("Exporting %d snapshots of %d items from %s", manifest.SnapshotCount(), len(manifest.Items), opts.Root)

	if err := os.MkdirAll(opts.Destination, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	archivePath := uniqueArchivePath(opts.Destination, ArchiveName(started))

	var cleanup []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range cleanup {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				e.logger.Warning("Failed to remove partial file %s: %v", path, rmErr)
			}
		}
	}()

	cleanup = append(cleanup, archivePath)
	if err := e.compressor.Compress(ctx, opts.Root, archivePath, entries, progress.Percent); err != nil {
		return nil, err
	}

	finalPath := archivePath
	encrypted := len(opts.Recipients) > 0
	if encrypted {
		finalPath = archivePath + ".age"
		cleanup = append(cleanup, finalPath)
		if err := EncryptFile(archivePath, finalPath, opts.Recipients...); err != nil {
			return nil, err
		}
		if err := os.Remove(archivePath); err != nil {
			e.logger.Warning("Failed to remove plaintext archive %s: %v", archivePath, err)
		}
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	sum, err := WriteChecksumFile(ctx, e.logger, finalPath)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, finalPath+ChecksumExt)

	mode := ""
	if encrypted {
		mode = "age"
	}
	if err := CreateManifest(e.logger, &ExportManifest{
		ArchivePath:    filepath.Base(finalPath),
		ArchiveSize:    info.Size(),
		SHA256:         sum,
		CreatedAt:      started,
		SnapshotCount:  manifest.SnapshotCount(),
		PerItem:        opts.Count,
		Entries:        entries,
		EncryptionMode: mode,
		Version:        e.version,
	}, finalPath+ManifestExt); err != nil {
		return nil, err
	}

	progress.Percent(100)
	res = &ExportResult{
		ArchivePath: finalPath,
		Size:        info.Size(),
		SHA256:      sum,
		Manifest:    manifest,
		Encrypted:   encrypted,
		Duration:    e.clock.Now().Sub(started),
	}
	e.logger.Info("Export archive %s (%s) created", finalPath, humanize.IBytes(uint64(info.Size())))
	return res, nil
}
