package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/juju/clock"

	"github.com/tis24dev/savevault/internal/backup"
	"github.com/tis24dev/savevault/internal/logging"
)

var (
	osReadDir   = os.ReadDir
	osRemoveAll = os.RemoveAll
)

// PruneSummary reports the outcome of a retention pass.
type PruneSummary struct {
	Items   int
	Kept    int
	Deleted int
	Failed  int
	// Removed lists the snapshot paths deleted (or that would be, on a dry run).
	Removed []string
	DryRun  bool
}

// Local applies retention to the snapshot folders under a backup root.
type Local struct {
	root   string
	logger *logging.Logger
	clock  clock.Clock
}

// NewLocal creates a Local for root. A nil clock uses the wall clock.
func NewLocal(root string, logger *logging.Logger, clk clock.Clock) *Local {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Local{root: root, logger: logging.OrDefault(logger).With("retention"), clock: clk}
}

// Items lists the item folders under the root. Symbolic links are skipped.
func (l *Local) Items() ([]string, error) {
	names, err := realDirs(l.root)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// List returns the snapshots of item, newest first. The snapshot time is
// parsed from the folder name and falls back to the folder mtime.
func (l *Local) List(item string) ([]*Snapshot, error) {
	dir := filepath.Join(l.root, item)
	entries, err := osReadDir(dir)
	if err != nil {
		return nil, err
	}
	var snaps []*Snapshot
	for _, e := range entries {
		if !e.IsDir() || e.Type()&os.ModeSymlink != 0 {
			continue
		}
		s := &Snapshot{Item: item, Name: e.Name(), Path: filepath.Join(dir, e.Name())}
		if ts, err := time.ParseInLocation(backup.SnapshotLayout, e.Name(), time.Local); err == nil {
			s.Time = ts
		} else if info, err := e.Info(); err == nil {
			s.Time = info.ModTime()
		}
		snaps = append(snaps, s)
	}
	sortNewestFirst(snaps)
	return snaps, nil
}

// Prune removes the snapshots cfg does not keep, item by item. A dry run only
// reports what would be removed. Failures to delete a snapshot are counted
// and logged; the pass continues with the next one.
func (l *Local) Prune(ctx context.Context, cfg RetentionConfig, dryRun bool) (PruneSummary, error) {
	summary := PruneSummary{DryRun: dryRun}
	if err := cfg.Validate(); err != nil {
		return summary, err
	}
	cfg = cfg.Normalize(l.logger)

	items, err := l.Items()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Debug("Backup root %s does not exist, nothing to prune", l.root)
			return summary, nil
		}
		return summary, fmt.Errorf("list backup root %s: %w", l.root, err)
	}

	now := l.clock.Now()
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		snaps, err := l.List(item)
		if err != nil {
			l.logger.Warning("Cannot list snapshots of %s: %v", item, err)
			summary.Failed++
			continue
		}
		if len(snaps) == 0 {
			continue
		}
		summary.Items++

		var classes map[*Snapshot]Category
		if cfg.Policy == PolicyGFS {
			classes = ClassifyGFS(snaps, cfg, now)
		} else {
			classes = ClassifySimple(snaps, cfg.MaxBackups)
		}
		stats := Stats(classes)
		l.logger.Debug("%s: %d snapshots, %d to delete", item, len(snaps), stats[CategoryDelete])

		for _, s := range snaps {
			if classes[s] != CategoryDelete {
				summary.Kept++
				continue
			}
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if dryRun {
				summary.Removed = append(summary.Removed, s.Path)
				continue
			}
			if err := osRemoveAll(s.Path); err != nil {
				l.logger.Warning("Failed to delete %s: %v", s.Path, err)
				summary.Failed++
				summary.Kept++
				continue
			}
			l.logger.Debug("Deleted old snapshot %s", s.Path)
			summary.Deleted++
			summary.Removed = append(summary.Removed, s.Path)
		}
	}

	l.logger.Info("Retention (%s): %d items, %d snapshots kept, %d deleted",
		cfg.Policy, summary.Items, summary.Kept, summary.Deleted)
	return summary, nil
}

func realDirs(dir string) ([]string, error) {
	entries, err := osReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && e.Type()&os.ModeSymlink == 0 {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
