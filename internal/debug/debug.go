// Package debug provides a cheap, env-gated diagnostic logger used by
// components that want to trace their own decisions without wiring a
// logger through every call site.
package debug

import (
	"fmt"
	"os"
)

// enabled is resolved once from HOP_DEBUG at package init; tests that need
// to flip it call SetEnabled directly.
var enabled = os.Getenv("HOP_DEBUG") != ""

// SetEnabled overrides whether Logf writes anything, for tests and for
// --verbose wiring in cmd/hop.
func SetEnabled(v bool) { enabled = v }

// Enabled reports the current state.
func Enabled() bool { return enabled }

// Logf writes a formatted line to stderr iff debug output is enabled.
func Logf(format string, args ...interface{}) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
