// Package version exposes the build-time version string used by the
// websocket sysinfo greeting and the GET /info endpoint (spec.md §6).
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set at build time via
// -ldflags "-X 'github.com/midigurdy/core/internal/version.Version=X'",
// the same mechanism the teacher uses for SAMOYED_VERSION.
var Version string

// Name is the product name reported in /info and the sysinfo greeting.
const Name = "mgurdyd"

// Info is the {name, version} shape sent on /info and the websocket
// sysinfo greeting.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Current resolves Info, falling back to the module's VCS revision
// when Version wasn't set at build time.
func Current() Info {
	v := Version
	if v == "" {
		v = fromBuildInfo()
	}

	return Info{Name: Name, Version: v}
}

func fromBuildInfo() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "UNKNOWN"
	}

	rev := buildSetting(bi, "vcs.revision", "UNKNOWN")
	if buildSetting(bi, "vcs.modified", "false") == "true" {
		rev += "-dirty"
	}

	return rev
}

func buildSetting(bi *debug.BuildInfo, key, fallback string) string {
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}

	return fallback
}

// String implements fmt.Stringer for log lines and CLI --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s", i.Name, i.Version)
}
