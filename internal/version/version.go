// Package version holds build metadata stamped in with -ldflags, e.g.
//
//	-X github.com/banshee-data/navtag/internal/version.Version=v0.3.0
package version

import "fmt"

// Set at link time; the defaults mark a local build.
var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for -version output and catalog runs.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
