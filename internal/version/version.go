// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/illomx/market-dashboard/internal/version.Version=0.1.0 \
//	                   -X github.com/illomx/market-dashboard/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "0.1.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}

// UserAgent is sent with outbound metadata requests so gateways can identify us.
func UserAgent() string {
	return "illomx-dashboard/" + Version
}
