// Package version carries build information stamped in with -ldflags.
package version //nolint:revive // package name intentionally matches build-info convention

import "fmt"

//nolint:gochecknoglobals //version information is set at build time
var (
	Version = "dev"
	Commit  string
	Date    string
)

// String renders the build information on one line.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
