// Package config owns the persisted user settings: the data model, its
// defaults, and the Store that serializes every write to disk.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Setting keys, as they appear in settings.json.
const (
	KeyTheme         = "theme"
	KeyLanguage      = "language"
	KeyBackupPath    = "backupPath"
	KeyExportPath    = "exportPath"
	KeyMaxBackups    = "maxBackups"
	KeyAutoAppUpdate = "autoAppUpdate"
	KeyAutoDBUpdate  = "autoDbUpdate"
	KeyGameInstalls  = "gameInstalls"
	KeyPinnedGames   = "pinnedGames"
)

// Keys lists every known setting key in file order.
var Keys = []string{
	KeyTheme,
	KeyLanguage,
	KeyBackupPath,
	KeyExportPath,
	KeyMaxBackups,
	KeyAutoAppUpdate,
	KeyAutoDBUpdate,
	KeyGameInstalls,
	KeyPinnedGames,
}

const (
	appDirName        = "SaveVault"
	backupDirName     = "SaveVault Backups"
	settingsFileName  = "settings.json"
	uninitializedMark = "uninitialized"
)

// Themes accepted for KeyTheme.
var Themes = []string{"dark", "light"}

// InstallSet is the list of game install directories scanned for saves.
// Before the first scan it is persisted as the string "uninitialized".
type InstallSet struct {
	Initialized bool
	Paths       []string
}

// MarshalJSON implements json.Marshaler.
func (s InstallSet) MarshalJSON() ([]byte, error) {
	if !s.Initialized {
		return json.Marshal(uninitializedMark)
	}
	paths := s.Paths
	if paths == nil {
		paths = []string{}
	}
	return json.Marshal(paths)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *InstallSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var mark string
		if err := json.Unmarshal(trimmed, &mark); err != nil {
			return err
		}
		if mark != uninitializedMark {
			return fmt.Errorf("gameInstalls: unexpected value %q", mark)
		}
		*s = InstallSet{}
		return nil
	}
	var paths []string
	if err := json.Unmarshal(trimmed, &paths); err != nil {
		return fmt.Errorf("gameInstalls: %w", err)
	}
	*s = InstallSet{Initialized: true, Paths: paths}
	return nil
}

// Settings is the flat option set persisted in settings.json.
type Settings struct {
	Theme         string     `json:"theme"`
	Language      string     `json:"language"`
	BackupPath    string     `json:"backupPath"`
	ExportPath    string     `json:"exportPath"`
	MaxBackups    int        `json:"maxBackups"`
	AutoAppUpdate bool       `json:"autoAppUpdate"`
	AutoDBUpdate  bool       `json:"autoDbUpdate"`
	GameInstalls  InstallSet `json:"gameInstalls"`
	PinnedGames   []string   `json:"pinnedGames"`

	// Extra keeps keys written by newer versions so they survive a rewrite.
	Extra map[string]json.RawMessage `json:"-"`
}

type settingsFields Settings

// MarshalJSON writes the known fields followed by any preserved unknown keys.
func (s Settings) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(settingsFields(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(s.Extra)+len(Keys))
	for k, v := range s.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON overlays the document on the receiver, so fields missing from
// the document keep their current (default) values. Keys with a value of the
// wrong type are reported after every other key has been applied.
func (s *Settings) UnmarshalJSON(data []byte) error {
	rejected, err := s.Overlay(data)
	if err != nil {
		return err
	}
	return errors.Join(rejected...)
}

// Overlay decodes the JSON object in data over s one key at a time. A key
// whose value cannot be decoded keeps its current value and is returned in
// rejected. err is set only when data is not a JSON object, in which case s
// is left unchanged.
func (s *Settings) Overlay(data []byte) (rejected []error, err error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if all == nil {
		return nil, errors.New("settings document is not a JSON object")
	}

	for _, key := range Keys {
		raw, ok := all[key]
		if !ok {
			continue
		}
		delete(all, key)

		doc, err := json.Marshal(map[string]json.RawMessage{key: raw})
		if err != nil {
			rejected = append(rejected, fmt.Errorf("%s: %w", key, err))
			continue
		}
		trial := settingsFields(s.Clone())
		if err := json.Unmarshal(doc, &trial); err != nil {
			rejected = append(rejected, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*s = Settings(trial)
	}
	if len(all) > 0 {
		s.Extra = all
	}
	return rejected, nil
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.PinnedGames = slices.Clone(s.PinnedGames)
	out.GameInstalls.Paths = slices.Clone(s.GameInstalls.Paths)
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = slices.Clone(v)
		}
	}
	return out
}

// Defaults returns the settings used when nothing has been persisted yet.
func Defaults() Settings {
	return Settings{
		Theme:         "dark",
		Language:      DetectLanguage(os.Getenv),
		BackupPath:    DefaultBackupPath(),
		ExportPath:    "",
		MaxBackups:    5,
		AutoAppUpdate: true,
		AutoDBUpdate:  false,
		GameInstalls:  InstallSet{},
		PinnedGames:   []string{},
	}
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

// DefaultSettingsPath is the per-user location of settings.json.
func DefaultSettingsPath() string {
	return filepath.Join(userConfigDir(), appDirName, settingsFileName)
}

// DefaultBackupPath is the backup root used until the user migrates it.
func DefaultBackupPath() string {
	return filepath.Join(userConfigDir(), backupDirName)
}

// Get returns the value stored under key.
func (s Settings) Get(key string) (any, error) {
	switch key {
	case KeyTheme:
		return s.Theme, nil
	case KeyLanguage:
		return s.Language, nil
	case KeyBackupPath:
		return s.BackupPath, nil
	case KeyExportPath:
		return s.ExportPath, nil
	case KeyMaxBackups:
		return s.MaxBackups, nil
	case KeyAutoAppUpdate:
		return s.AutoAppUpdate, nil
	case KeyAutoDBUpdate:
		return s.AutoDBUpdate, nil
	case KeyGameInstalls:
		return s.GameInstalls, nil
	case KeyPinnedGames:
		return slices.Clone(s.PinnedGames), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// apply stores value under key after checking its type.
func (s *Settings) apply(key string, value any) error {
	wrongType := func() error {
		return fmt.Errorf("%w: %s does not accept %T", ErrInvalidValue, key, value)
	}
	switch key {
	case KeyTheme:
		v, ok := value.(string)
		if !ok {
			return wrongType()
		}
		if !slices.Contains(Themes, v) {
			return fmt.Errorf("%w: theme must be one of %v", ErrInvalidValue, Themes)
		}
		s.Theme = v
	case KeyLanguage:
		v, ok := value.(string)
		if !ok {
			return wrongType()
		}
		if !slices.Contains(SupportedLanguages, v) {
			return fmt.Errorf("%w: language must be one of %v", ErrInvalidValue, SupportedLanguages)
		}
		s.Language = v
	case KeyBackupPath, KeyExportPath:
		v, ok := value.(string)
		if !ok {
			return wrongType()
		}
		if key == KeyBackupPath {
			if v == "" {
				return fmt.Errorf("%w: backupPath cannot be empty", ErrInvalidValue)
			}
			s.BackupPath = v
		} else {
			s.ExportPath = v
		}
	case KeyMaxBackups:
		v, ok := value.(int)
		if !ok {
			return wrongType()
		}
		if v < 1 {
			return fmt.Errorf("%w: maxBackups must be >= 1", ErrInvalidValue)
		}
		s.MaxBackups = v
	case KeyAutoAppUpdate, KeyAutoDBUpdate:
		v, ok := value.(bool)
		if !ok {
			return wrongType()
		}
		if key == KeyAutoAppUpdate {
			s.AutoAppUpdate = v
		} else {
			s.AutoDBUpdate = v
		}
	case KeyGameInstalls:
		switch v := value.(type) {
		case InstallSet:
			s.GameInstalls = InstallSet{Initialized: v.Initialized, Paths: slices.Clone(v.Paths)}
		case []string:
			s.GameInstalls = InstallSet{Initialized: true, Paths: slices.Clone(v)}
		default:
			return wrongType()
		}
	case KeyPinnedGames:
		v, ok := value.([]string)
		if !ok {
			return wrongType()
		}
		s.PinnedGames = slices.Clone(v)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}
