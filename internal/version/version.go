// Package version holds the build version string.
package version

// Version is set at build time via -ldflags "-X .../internal/version.Version=v1.2.3".
// Defaults to "dev" for local builds.
var Version = "dev"
