package version

import "fmt"

// Version and CommitHash are set at build time with -ldflags. Defaults are
// useful for local development.
var (
	Version    string = "dev"
	CommitHash string = "unknown"
)

// Describe returns the human-readable string printed by --version.
func Describe() string {
	return fmt.Sprintf("ctxeng %s (%s)", Version, CommitHash)
}
