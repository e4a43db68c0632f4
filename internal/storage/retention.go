// Package storage applies retention policies to the snapshot folders kept
// under the backup root (<root>/<item>/<snapshot>).
package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/tis24dev/savevault/internal/logging"
)

// Retention policies.
const (
	PolicySimple = "simple"
	PolicyGFS    = "gfs"
)

// RetentionConfig defines how many snapshots of each item are kept.
type RetentionConfig struct {
	// Policy is PolicySimple (count based) or PolicyGFS (time distributed).
	Policy string

	// MaxBackups is the number of newest snapshots kept per item by the
	// simple policy. Zero or less disables pruning.
	MaxBackups int

	// GFS tiers. Daily keeps the newest N snapshots, the other tiers keep one
	// snapshot per ISO week, month and year. Yearly == 0 keeps every year.
	Daily   int
	Weekly  int
	Monthly int
	Yearly  int
}

// Validate rejects unknown policies and negative tier counts.
func (c RetentionConfig) Validate() error {
	switch c.Policy {
	case PolicySimple, "":
		if c.MaxBackups < 0 {
			return fmt.Errorf("max backups must not be negative")
		}
	case PolicyGFS:
		if c.Daily < 0 || c.Weekly < 0 || c.Monthly < 0 || c.Yearly < 0 {
			return fmt.Errorf("gfs retention tiers must not be negative")
		}
	default:
		return fmt.Errorf("unknown retention policy %q", c.Policy)
	}
	return nil
}

// Normalize applies the minimums required before running a retention pass:
// the GFS daily tier always keeps at least the newest snapshot.
func (c RetentionConfig) Normalize(logger *logging.Logger) RetentionConfig {
	if c.Policy == "" {
		c.Policy = PolicySimple
	}
	if c.Policy != PolicyGFS || c.Daily > 0 {
		return c
	}
	logging.OrDefault(logger).Info("GFS daily tier is %d, keeping at least the newest snapshot", c.Daily)
	c.Daily = 1
	return c
}

// Category is the retention class assigned to a snapshot.
type Category string

const (
	CategoryDaily   Category = "daily"
	CategoryWeekly  Category = "weekly"
	CategoryMonthly Category = "monthly"
	CategoryYearly  Category = "yearly"
	CategoryKeep    Category = "keep"
	CategoryDelete  Category = "delete"
)

// Snapshot is one dated backup folder of an item.
type Snapshot struct {
	Item string
	Name string
	Path string
	Time time.Time
}

// sortNewestFirst orders snapshots by time, then name, newest first.
func sortNewestFirst(snaps []*Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].Time.Equal(snaps[j].Time) {
			return snaps[i].Time.After(snaps[j].Time)
		}
		return snaps[i].Name > snaps[j].Name
	})
}

// ClassifySimple keeps the newest max snapshots and marks the rest for
// deletion. max <= 0 keeps everything.
func ClassifySimple(snaps []*Snapshot, max int) map[*Snapshot]Category {
	sortNewestFirst(snaps)
	out := make(map[*Snapshot]Category, len(snaps))
	for i, s := range snaps {
		if max <= 0 || i < max {
			out[s] = CategoryKeep
		} else {
			out[s] = CategoryDelete
		}
	}
	return out
}

// ClassifyGFS classifies snapshots with a grandfather-father-son scheme
// relative to now. Weekly, monthly and yearly tiers only consider periods
// strictly before the current one and snapshots older than the daily tier.
func ClassifyGFS(snaps []*Snapshot, cfg RetentionConfig, now time.Time) map[*Snapshot]Category {
	out := make(map[*Snapshot]Category, len(snaps))
	if len(snaps) == 0 {
		return out
	}
	sortNewestFirst(snaps)

	currentYear, currentWeek := now.ISOWeek()
	currentMonth := now.Year()*12 + int(now.Month())

	cut := len(snaps)
	daily := max(cfg.Daily, 0)
	if daily > 0 && daily < len(snaps) {
		cut = daily
	}
	if daily > 0 {
		for _, s := range snaps[:cut] {
			out[s] = CategoryDaily
		}
	} else {
		cut = 0
	}
	older := snaps[cut:]

	if cfg.Weekly > 0 {
		seen := make(map[string]bool)
		for _, s := range older {
			y, w := s.Time.ISOWeek()
			if y > currentYear || (y == currentYear && w >= currentWeek) {
				continue
			}
			key := fmt.Sprintf("%d-W%02d", y, w)
			if !seen[key] && len(seen) < cfg.Weekly {
				out[s] = CategoryWeekly
				seen[key] = true
			}
		}
	}

	if cfg.Monthly > 0 {
		seen := make(map[string]bool)
		for _, s := range older {
			if out[s] != "" || s.Time.Year()*12+int(s.Time.Month()) >= currentMonth {
				continue
			}
			key := s.Time.Format("2006-01")
			if !seen[key] && len(seen) < cfg.Monthly {
				out[s] = CategoryMonthly
				seen[key] = true
			}
		}
	}

	if cfg.Yearly >= 0 {
		seen := make(map[string]bool)
		for _, s := range older {
			if out[s] != "" || s.Time.Year() >= now.Year() {
				continue
			}
			key := s.Time.Format("2006")
			if !seen[key] && (cfg.Yearly == 0 || len(seen) < cfg.Yearly) {
				out[s] = CategoryYearly
				seen[key] = true
			}
		}
	}

	for _, s := range snaps {
		if out[s] == "" {
			out[s] = CategoryDelete
		}
	}
	return out
}

// Stats counts snapshots per category.
func Stats(classification map[*Snapshot]Category) map[Category]int {
	stats := make(map[Category]int)
	for _, c := range classification {
		stats[c]++
	}
	return stats
}
