// Package version holds build metadata of the hostgen CLI.
// The variables are overridden at build time via -ldflags.
package version

import (
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with major, minor and patch in distinct colours.
// Anything that does not look like X.Y.Z is returned unchanged.
func Colored(enabled bool) string {
	v := strings.TrimSpace(Version)
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 || !enabled {
		return v
	}
	return majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2]) + suffix
}

// Info is the build metadata shown by `hostgen version --full`.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Modified  bool // built from a dirty worktree
}

// Read fills Info from the ldflags variables, falling back to the VCS
// stamps the Go toolchain embeds when the variables are empty.
func Read() Info {
	info := Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}
