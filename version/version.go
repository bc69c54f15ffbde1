// Package version stamps cmd/ember's --version output and, via
// driver.Execution.ID (backed by google/uuid rather than this package),
// the trace-correlation identity of a single run. Grounded on the
// teacher's version/version.go, which the same way keeps build-time
// identity out of the VM/runtime packages entirely.
package version

import "fmt"

const (
	VERSION = "0.1.0"
	COMMIT  = "dev"
	BUILT   = ""
)

// Version formats the module's version, commit, and build timestamp for
// display, extending the teacher's own "%s (%s)" format to include the
// commit. It returns the bare version only when COMMIT and BUILT are both
// empty.
func Version() string {
	if COMMIT == "" && BUILT == "" {
		return VERSION
	}
	return fmt.Sprintf("%s (commit %s, built %s)", VERSION, COMMIT, BUILT)
}
