// Package version carries build metadata stamped in by ldflags.
package version

import (
	"fmt"
	"runtime"
)

const Name = "voxscribe"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the long form printed by `voxscribe version`.
func String() string {
	return fmt.Sprintf("%s %s (commit=%s, date=%s, go=%s)", Name, Version, Commit, Date, runtime.Version())
}

// UserAgent identifies voxscribe to recognition services.
func UserAgent() string {
	return Name + "/" + Version
}
