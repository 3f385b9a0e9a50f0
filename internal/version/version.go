// Package version reports the guardrail build version for --version.
package version

import (
	"runtime/debug"
)

// fallback is shown for untagged builds and go run.
const fallback = "dev"

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// BuildVersion returns the module version embedded at build time.
func BuildVersion() string {
	info, ok := readBuildInfo()
	if !ok {
		return fallback
	}
	switch info.Main.Version {
	case "", "(devel)":
		return fallback
	}
	return info.Main.Version
}
