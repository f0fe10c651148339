// Package buildtime tells the version of the binary.
package buildtime

import (
	"runtime/debug"
)

// set by `-ldflags "-X github.com/opst/wlconf/pkg/buildtime.version=..."`
var version = "dev"

// VERSION is the version when this binary has been built.
func VERSION() string {
	return version
}

// GIT_REVISION is the VCS revision stamped by the go toolchain. Empty when unknown.
func GIT_REVISION() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func VersionString() string {
	rev := GIT_REVISION()
	if rev == "" {
		rev = "unknown"
	}
	return version + " (commit: " + rev + ")"
}
