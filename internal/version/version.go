// Package version exposes the build version and the update comparison.
package version

import (
	"runtime/debug"
	"strings"
)

// Populated at build time, e.g.
//
//	-X github.com/tis24dev/savevault/internal/version.Version=v1.4.0
var (
	Version = "0.0.0-dev"
	Commit  = ""
	Date    = ""
)

var readBuildInfo = debug.ReadBuildInfo

// String returns the effective version without a leading "v".
// Order: ldflags value, main module version from build info, dev placeholder.
func String() string {
	v := strings.TrimSpace(Version)

	if v == "" {
		if info, ok := readBuildInfo(); ok && info != nil {
			if mv := strings.TrimSpace(info.Main.Version); mv != "" && mv != "(devel)" {
				v = mv
			}
		}
	}

	if v == "" {
		v = "0.0.0-dev"
	}
	return strings.TrimPrefix(v, "v")
}

// Full returns String plus commit and date when they were injected.
func Full() string {
	s := String()
	var extra []string
	if c := strings.TrimSpace(Commit); c != "" {
		if len(c) > 12 {
			c = c[:12]
		}
		extra = append(extra, c)
	}
	if d := strings.TrimSpace(Date); d != "" {
		extra = append(extra, d)
	}
	if len(extra) == 0 {
		return s
	}
	return s + " (" + strings.Join(extra, ", ") + ")"
}
