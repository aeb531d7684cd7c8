// Package version carries build metadata injected with -ldflags.
package version

import "runtime/debug"

var (
	Version       = "dev"
	GitCommit     = "unknown"
	BuildDate     = "unknown"
	ComponentName = "planner"
)

type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit"`
	BuildDate     string `json:"build_date"`
	ComponentName string `json:"component_name,omitempty"`
	GoVersion     string `json:"go_version,omitempty"`
}

func GetInfo() Info {
	info := Info{
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		ComponentName: ComponentName,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
	}
	return info
}

// GetShortCommit returns the first 7 characters of the commit hash.
func GetShortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
