// Package version carries build metadata injected with -ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/metricbus/internal/version.Version=v0.3.0"
package version

import "fmt"

// Version is the release version, "dev" for local builds.
var Version = "dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("metricbus %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
