// Package version carries build metadata stamped in by ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the full build line printed by `parley version`.
func String() string {
	return fmt.Sprintf("parley %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// UserAgent is sent on every outbound HTTP request.
func UserAgent() string {
	return "parley/" + Version
}
