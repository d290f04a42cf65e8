// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables injected via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildDate = "unknown"
	GitDirty  = ""
)

// Info returns the release name: the git tag when built from one, otherwise
// Version, with a -dirty suffix for modified trees.
func Info() string {
	v := Version
	if GitTag != "" && GitTag != "unknown" {
		v = GitTag
	}
	if GitDirty == "true" && !strings.HasSuffix(v, "-dirty") {
		v += "-dirty"
	}
	return v
}

// Full returns Info plus the short commit hash.
func Full() string {
	info := Info()
	commit := shortCommit()
	if commit != "" && !strings.Contains(info, commit) {
		info += fmt.Sprintf(" (%s)", commit)
	}
	return info
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// Banner is the multi-line output of `tether version`.
func Banner() string {
	return fmt.Sprintf("tether %s\n  commit: %s\n  built:  %s\n  go:     %s %s/%s",
		Info(), GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent in the WebSocket handshake.
func UserAgent() string {
	return fmt.Sprintf("tether/%s (%s/%s)", Info(), runtime.GOOS, runtime.GOARCH)
}
