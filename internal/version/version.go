// Package version exposes build metadata served by GET /version.
package version

// These are overridden at build time via -ldflags.
var (
	// Version is the application release version.
	Version = "0.0.0"

	// GitCommit is the git commit hash of the build.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)
