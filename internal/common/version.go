package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version information (set via -ldflags during build)
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is what /api/version, the banner and crash reports print.
type VersionInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// GetVersionInfo returns the ldflags values. Fields left at their defaults are filled
// from the module build info (module version, vcs revision and time) when available.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Build:     Build,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = shortCommit(s.Value)
			}
		case "vcs.time":
			if info.Build == "unknown" {
				info.Build = s.Value
			}
		}
	}
	return info
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (build: %s, commit: %s)", info.Version, info.Build, info.GitCommit)
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
