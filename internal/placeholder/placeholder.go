// Package placeholder resolves the symbolic path tokens used by the game
// catalog ({{p|appdata}}, {{p|xdgdatahome}}, ...) into concrete locations for
// the current user, and converts path templates to and from the compact
// {{pN}} identifiers used when templates are persisted.
package placeholder

import (
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Tokens understood by the resolver.
const (
	Username         = "{{p|username}}"
	UserProfile      = "{{p|userprofile}}"
	Documents        = "{{p|userprofile/documents}}"
	LocalLow         = "{{p|userprofile/appdata/locallow}}"
	AppData          = "{{p|appdata}}"
	LocalAppData     = "{{p|localappdata}}"
	ProgramFiles     = "{{p|programfiles}}"
	ProgramData      = "{{p|programdata}}"
	Public           = "{{p|public}}"
	WinDir           = "{{p|windir}}"
	Game             = "{{p|game}}"
	UID              = "{{p|uid}}"
	Steam            = "{{p|steam}}"
	Uplay            = "{{p|uplay}}"
	UbisoftConnect   = "{{p|ubisoftconnect}}"
	HKCU             = "{{p|hkcu}}"
	HKLM             = "{{p|hklm}}"
	Wow64            = "{{p|wow64}}"
	OSXHome          = "{{p|osxhome}}"
	LinuxHome        = "{{p|linuxhome}}"
	XDGDataHome      = "{{p|xdgdatahome}}"
	XDGConfigHome    = "{{p|xdgconfighome}}"
	identifierPrefix = "{{p"
)

// identifiers maps every canonical token to its compact form. The order of the
// slice is the canonical display order.
var identifiers = []struct {
	token string
	id    string
}{
	{Username, "{{p1}}"},
	{UserProfile, "{{p2}}"},
	{Documents, "{{p3}}"},
	{LocalLow, "{{p4}}"},
	{AppData, "{{p5}}"},
	{LocalAppData, "{{p6}}"},
	{ProgramFiles, "{{p7}}"},
	{ProgramData, "{{p8}}"},
	{Public, "{{p9}}"},
	{WinDir, "{{p10}}"},
	{Game, "{{p11}}"},
	{UID, "{{p12}}"},
	{Steam, "{{p13}}"},
	{Uplay, "{{p14}}"},
	{HKCU, "{{p15}}"},
	{HKLM, "{{p16}}"},
	{Wow64, "{{p17}}"},
	{OSXHome, "{{p18}}"},
	{LinuxHome, "{{p19}}"},
	{XDGDataHome, "{{p20}}"},
	{XDGConfigHome, "{{p21}}"},
}

// aliases are alternate spellings that share the identifier of a canonical token.
var aliases = map[string]string{
	UbisoftConnect: Uplay,
}

// Env is the snapshot of operating system state the resolver is computed from.
type Env struct {
	GOOS     string
	Getenv   func(string) string
	HomeDir  string
	Username string
}

// CurrentEnv captures the environment of the running process.
func CurrentEnv() Env {
	env := Env{GOOS: goos, Getenv: os.Getenv}
	if home, err := os.UserHomeDir(); err == nil {
		env.HomeDir = home
	}
	if u, err := user.Current(); err == nil {
		env.Username = u.Username
		if env.HomeDir == "" {
			env.HomeDir = u.HomeDir
		}
	}
	return env
}

// Resolver is an immutable token table. It never consults application settings.
type Resolver struct {
	values map[string]string
	byID   map[string]string
	toID   map[string]string
}

// NewResolver computes the token table for env.
func NewResolver(env Env) *Resolver {
	getenv := env.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	or := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}
	join := joinerFor(env.GOOS)

	profile := or("USERPROFILE", env.HomeDir)

	r := &Resolver{
		values: map[string]string{
			Username:      env.Username,
			UserProfile:   profile,
			Documents:     join(profile, "Documents"),
			LocalLow:      join(profile, "AppData", "LocalLow"),
			AppData:       or("APPDATA", join(profile, "AppData", "Roaming")),
			LocalAppData:  or("LOCALAPPDATA", join(profile, "AppData", "Local")),
			ProgramFiles:  or("PROGRAMFILES", `C:\Program Files`),
			ProgramData:   or("PROGRAMDATA", `C:\ProgramData`),
			Public:        or("PUBLIC", `C:\Users\Public`),
			WinDir:        or("WINDIR", `C:\Windows`),
			HKCU:          "HKEY_CURRENT_USER",
			HKLM:          "HKEY_LOCAL_MACHINE",
			Wow64:         `HKEY_LOCAL_MACHINE\SOFTWARE\WOW6432Node`,
			OSXHome:       env.HomeDir,
			LinuxHome:     env.HomeDir,
			XDGDataHome:   or("XDG_DATA_HOME", join(env.HomeDir, ".local", "share")),
			XDGConfigHome: or("XDG_CONFIG_HOME", join(env.HomeDir, ".config")),
		},
		byID: make(map[string]string, len(identifiers)),
		toID: make(map[string]string, len(identifiers)+len(aliases)),
	}
	for _, entry := range identifiers {
		r.byID[entry.id] = entry.token
		r.toID[entry.token] = entry.id
	}
	for alias, canonical := range aliases {
		r.toID[alias] = r.toID[canonical]
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default returns the resolver for the running process, computed once.
func Default() *Resolver {
	defaultOnce.Do(func() {
		defaultResolver = NewResolver(CurrentEnv())
	})
	return defaultResolver
}

// Resolve returns the concrete location for token. Tokens that depend on the
// catalog entry being processed ({{p|game}}, {{p|steam}}, ...) are not
// resolvable here and report false.
func (r *Resolver) Resolve(token string) (string, bool) {
	if canonical, ok := aliases[token]; ok {
		token = canonical
	}
	v, ok := r.values[token]
	return v, ok
}

// IdentifierFor returns the compact identifier stored in place of token.
func (r *Resolver) IdentifierFor(token string) (string, bool) {
	id, ok := r.toID[token]
	return id, ok
}

// TokenFor is the inverse of IdentifierFor; aliases decode to their canonical token.
func (r *Resolver) TokenFor(id string) (string, bool) {
	token, ok := r.byID[id]
	return token, ok
}

// Tokens returns the canonical tokens in identifier order.
func (r *Resolver) Tokens() []string {
	out := make([]string, 0, len(identifiers))
	for _, entry := range identifiers {
		out = append(out, entry.token)
	}
	return out
}

// Compact replaces every verbose token in template with its identifier.
func (r *Resolver) Compact(template string) string {
	return replaceAll(template, r.toID)
}

// Decompact replaces every identifier in template with its canonical token.
func (r *Resolver) Decompact(template string) string {
	if !strings.Contains(template, identifierPrefix) {
		return template
	}
	return replaceAll(template, r.byID)
}

// Expand substitutes every resolvable token (verbose or compact) in template.
// The second return value lists tokens that were left unresolved.
func (r *Resolver) Expand(template string) (string, []string) {
	expanded := r.Decompact(template)
	resolvable := make(map[string]string, len(r.values)+len(aliases))
	for token, value := range r.values {
		resolvable[token] = value
	}
	for alias, canonical := range aliases {
		if value, ok := r.values[canonical]; ok {
			resolvable[alias] = value
		}
	}
	expanded = replaceAll(expanded, resolvable)

	var missing []string
	for _, entry := range identifiers {
		if strings.Contains(expanded, entry.token) {
			missing = append(missing, entry.token)
		}
	}
	for alias := range aliases {
		if strings.Contains(expanded, alias) {
			missing = append(missing, alias)
		}
	}
	return expanded, missing
}

// replaceAll substitutes keys longest-first so that {{p1}} never matches inside {{p10}}.
func replaceAll(s string, table map[string]string) string {
	keys := make([]string, 0, len(table))
	for k := range table {
		if strings.Contains(s, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return s
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, table[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func joinerFor(goos string) func(...string) string {
	if goos == "windows" && filepath.Separator != '\\' {
		return func(parts ...string) string {
			return strings.Join(parts, `\`)
		}
	}
	return filepath.Join
}
