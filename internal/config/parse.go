package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseValue converts the textual form of a setting (as typed on the command
// line) into the Go type accepted by Store.Set.
// List-valued keys accept a JSON array or a comma separated list.
func ParseValue(key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case KeyTheme, KeyLanguage, KeyBackupPath, KeyExportPath:
		return raw, nil
	case KeyMaxBackups:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer: %v", ErrInvalidValue, key, err)
		}
		return n, nil
	case KeyAutoAppUpdate, KeyAutoDBUpdate:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true/false: %v", ErrInvalidValue, key, err)
		}
		return b, nil
	case KeyGameInstalls:
		if raw == uninitializedMark {
			return InstallSet{}, nil
		}
		return parseList(key, raw)
	case KeyPinnedGames:
		return parseList(key, raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

func parseList(key, raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
		return out, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
