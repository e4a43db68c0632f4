package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// CustomEntriesFile is the shared metadata file kept at the backup root.
	CustomEntriesFile = "custom_entries.json"
	// SnapshotLayout is the time layout used to name snapshot folders.
	SnapshotLayout = "2006-01-02_15-04"
	// ArchivePrefix and ArchiveExt frame exported archive names.
	ArchivePrefix = "GSMBackup-"
	ArchiveExt    = ".gsm"
)

// ErrNoSnapshots is returned when an item has no snapshot folders.
var ErrNoSnapshots = errors.New("no backups")

// ArchiveManifest lists the backup-root relative paths selected for one export.
type ArchiveManifest struct {
	Root          string
	CustomEntries bool
	Items         []ItemSelection
}

// ItemSelection is the set of snapshots chosen for one tracked item, newest first.
type ItemSelection struct {
	ID        string
	Snapshots []string
}

// Entries returns the relative paths to archive, the shared metadata file first.
func (m *ArchiveManifest) Entries() []string {
	var out []string
	if m.CustomEntries {
		out = append(out, CustomEntriesFile)
	}
	for _, item := range m.Items {
		for _, snap := range item.Snapshots {
			out = append(out, filepath.Join(item.ID, snap))
		}
	}
	return out
}

// SnapshotCount returns the number of snapshot folders selected.
func (m *ArchiveManifest) SnapshotCount() int {
	n := 0
	for _, item := range m.Items {
		n += len(item.Snapshots)
	}
	return n
}

// BuildManifest selects, for every item directory under root, the count
// lexicographically greatest snapshot directories. Symbolic links are never
// followed. Items without snapshots are omitted.
func BuildManifest(root string, count int) (*ArchiveManifest, error) {
	if count <= 0 {
		return nil, fmt.Errorf("snapshot count must be positive, got %d", count)
	}

	m := &ArchiveManifest{Root: root}
	if info, err := os.Lstat(filepath.Join(root, CustomEntriesFile)); err == nil && info.Mode().IsRegular() {
		m.CustomEntries = true
	}

	items, err := listDirs(root)
	if err != nil {
		return nil, fmt.Errorf("read backup root %s: %w", root, err)
	}
	sort.Strings(items)

	for _, id := range items {
		snaps, err := listDirs(filepath.Join(root, id))
		if err != nil {
			return nil, fmt.Errorf("read item %s: %w", id, err)
		}
		if len(snaps) == 0 {
			continue
		}
		sort.Sort(sort.Reverse(sort.StringSlice(snaps)))
		if len(snaps) > count {
			snaps = snaps[:count]
		}
		m.Items = append(m.Items, ItemSelection{ID: id, Snapshots: snaps})
	}
	return m, nil
}

// listDirs returns the names of the real directories directly under dir.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
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

// NewestSnapshot returns the newest snapshot folder of itemID and the time
// encoded in its name. The time is zero when the name does not follow
// SnapshotLayout.
func NewestSnapshot(root, itemID string) (string, time.Time, error) {
	snaps, err := listDirs(filepath.Join(root, itemID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", time.Time{}, ErrNoSnapshots
		}
		return "", time.Time{}, err
	}
	if len(snaps) == 0 {
		return "", time.Time{}, ErrNoSnapshots
	}
	sort.Strings(snaps)
	newest := snaps[len(snaps)-1]
	ts, err := time.ParseInLocation(SnapshotLayout, newest, time.Local)
	if err != nil {
		return newest, time.Time{}, nil
	}
	return newest, ts, nil
}

// ArchiveName returns the export file name for t.
func ArchiveName(t time.Time) string {
	return ArchivePrefix + t.Format(SnapshotLayout) + ArchiveExt
}

// uniqueArchivePath returns dir/name, or dir/<base>-N<ext> when that file
// already exists, so an export never appends to an older archive.
func uniqueArchivePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	for i := 2; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
