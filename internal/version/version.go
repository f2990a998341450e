package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionFile string

// Build-time variables set via ldflags
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App returns the current version of ddlpatch
func App() string {
	return strings.TrimSpace(versionFile)
}

// String renders the full version line printed by the CLI.
func String() string {
	return "ddlpatch v" + App() + "@" + GitCommit + " " + Platform() + " " + BuildDate
}

// Platform returns the OS/architecture combination
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
