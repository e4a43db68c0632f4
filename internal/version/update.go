package version

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/types"
)

// LatestSource looks up the newest published version.
type LatestSource interface {
	Latest(ctx context.Context) (string, error)
}

// FixedSource is a LatestSource that always reports the same version.
type FixedSource string

func (f FixedSource) Latest(context.Context) (string, error) {
	return string(f), nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// IsNewer reports whether latest is a strictly higher semantic version than
// current. Invalid versions never compare as newer.
func IsNewer(latest, current string) bool {
	l, c := canonical(latest), canonical(current)
	if !semver.IsValid(l) {
		return false
	}
	if !semver.IsValid(c) {
		return true
	}
	return semver.Compare(l, c) > 0
}

// CheckForUpdate asks source for the newest version and reports the outcome
// to sink: an info alert when an update exists, a warning when the lookup
// fails. It returns the latest version and whether it is newer.
func CheckForUpdate(ctx context.Context, source LatestSource, current string, sink notify.NotificationSink) (string, bool, error) {
	if source == nil {
		return "", false, fmt.Errorf("no update source configured")
	}
	latest, err := source.Latest(ctx)
	if err != nil {
		err = fmt.Errorf("update check failed: %w", err)
		if sink != nil {
			sink.OnAlert(notify.Alert{
				Severity: types.SeverityWarning,
				Title:    "Update check",
				Detail:   err.Error(),
			})
		}
		return "", false, err
	}

	newer := IsNewer(latest, current)
	if newer && sink != nil {
		sink.OnAlert(notify.Alert{
			Severity: types.SeverityInfo,
			Title:    "Update available",
			Detail:   fmt.Sprintf("Version %s is available (installed: %s)", strings.TrimPrefix(canonical(latest), "v"), current),
		})
	}
	return latest, newer, nil
}
