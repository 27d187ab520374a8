package version

import (
	"strings"

	"github.com/fatih/color"
)

// Build metadata, overridable via -ldflags at link time.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var accent = color.New(color.FgYellow, color.Bold)

// Full renders the version with optional commit and build date appended,
// e.g. "0.1.0-dev (abc1234, 2026-08-26)".
func Full() string {
	var b strings.Builder
	b.WriteString(accent.Sprint(Version))
	var extra []string
	if GitCommit != "" {
		extra = append(extra, GitCommit)
	}
	if BuildDate != "" {
		extra = append(extra, BuildDate)
	}
	if len(extra) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(extra, ", "))
		b.WriteString(")")
	}
	return b.String()
}
