// Package version holds build-time identifiers, set via -ldflags by the
// release build. Left at defaults for local and test builds.
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
