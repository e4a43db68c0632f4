package placeholder

import "runtime"

var goos = runtime.GOOS

var platformKeys = map[string]string{
	"windows": "win",
	"darwin":  "mac",
	"linux":   "linux",
}

// PlatformKey maps a GOOS value to the short key used by catalog path rules.
func PlatformKey(osName string) (string, bool) {
	key, ok := platformKeys[osName]
	return key, ok
}

// CurrentPlatformKey returns the catalog key of the running operating system.
func CurrentPlatformKey() (string, bool) {
	return PlatformKey(goos)
}
