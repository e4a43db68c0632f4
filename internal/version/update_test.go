package version

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/types"
)

type failingSource struct{}

func (failingSource) Latest(context.Context) (string, error) {
	return "", errors.New("offline")
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.0", "1.1.9", true},
		{"v1.2.0", "1.2.0", false},
		{"1.10.0", "1.9.0", true},
		{"1.2.0", "v1.3.0", false},
		{"1.3.0", "1.3.0-rc1", true},
		{"garbage", "1.0.0", false},
		{"1.0.0", "0.0.0-dev", true},
		{"1.0.0", "not-a-version", true},
	}
	for _, tt := range tests {
		if got := IsNewer(tt.latest, tt.current); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}

func TestCheckForUpdateReportsNewVersion(t *testing.T) {
	rec := &notify.Recorder{}
	latest, newer, err := CheckForUpdate(context.Background(), FixedSource("2.0.0"), "1.5.0", rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != "2.0.0" || !newer {
		t.Fatalf("latest=%q newer=%v", latest, newer)
	}
	alerts := rec.AlertList()
	if len(alerts) != 1 || alerts[0].Severity != types.SeverityInfo {
		t.Fatalf("alerts=%+v", alerts)
	}
	if !strings.Contains(alerts[0].Detail, "2.0.0") {
		t.Fatalf("detail=%q", alerts[0].Detail)
	}
}

func TestCheckForUpdateSilentWhenCurrent(t *testing.T) {
	rec := &notify.Recorder{}
	_, newer, err := CheckForUpdate(context.Background(), FixedSource("v1.5.0"), "1.5.0", rec)
	if err != nil || newer {
		t.Fatalf("newer=%v err=%v", newer, err)
	}
	if len(rec.AlertList()) != 0 {
		t.Fatalf("expected no alerts, got %+v", rec.AlertList())
	}
}

func TestCheckForUpdateWarnsOnFailure(t *testing.T) {
	rec := &notify.Recorder{}
	_, _, err := CheckForUpdate(context.Background(), failingSource{}, "1.0.0", rec)
	if err == nil {
		t.Fatalf("expected error")
	}
	alerts := rec.AlertList()
	if len(alerts) != 1 || alerts[0].Severity != types.SeverityWarning {
		t.Fatalf("alerts=%+v", alerts)
	}
}

func TestCheckForUpdateWithoutSource(t *testing.T) {
	if _, _, err := CheckForUpdate(context.Background(), nil, "1.0.0", nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
