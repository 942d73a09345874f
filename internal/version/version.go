package version

import "fmt"

// Set at build time with -ldflags "-X github.com/banshee-data/radartrack/internal/version.Version=...".
var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for -version output and run logs.
func String() string {
	return fmt.Sprintf("radartrack %s (%s, built %s)", Version, GitSHA, BuildTime)
}
