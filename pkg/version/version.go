// Package version holds build metadata stamped into the binaries.
package version

import "fmt"

// Set at build time via -ldflags "-X github.com/tr181-tools/tr181-go/pkg/version.Version=...".
var (
	Version   = "0.1.0"
	BuildDate = "dev"
	GitCommit = "unknown"
)

// String formats the build metadata for a named binary.
func String(binary string) string {
	return fmt.Sprintf("%s %s (built %s, commit %s)", binary, Version, BuildDate, GitCommit)
}
