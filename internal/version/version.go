// Package version reports the jaff build. Values are injected at link time:
//
//	go build -ldflags "-X github.com/conneroisu/jaff/internal/version.Version=v1.2.0 \
//	  -X github.com/conneroisu/jaff/internal/version.GitCommit=$(git rev-parse HEAD) \
//	  -X github.com/conneroisu/jaff/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Without them the module's embedded VCS settings are used.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time,omitempty"`
	Dirty     bool      `json:"dirty,omitempty"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
}

// Get collects the build information.
func Get() *Info {
	vcs := readVCS()

	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseTime(BuildTime),
		Dirty:     vcs["vcs.modified"] == "true",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev := vcs["vcs.revision"]; rev != "" {
			info.GitCommit = rev
		}
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(vcs["vcs.time"])
	}
	if info.Version == "" || info.Version == "dev" {
		switch {
		case vcs["main"] != "" && vcs["main"] != "(devel)":
			info.Version = vcs["main"]
		case len(info.GitCommit) >= 7 && info.GitCommit != "unknown":
			info.Version = "dev-" + info.GitCommit[:7]
		default:
			info.Version = "dev"
		}
	}
	return info
}

// Short returns the version with an abbreviated commit, e.g. "v1.2.0 (abc1234)".
func (i *Info) Short() string {
	if len(i.GitCommit) < 7 || i.GitCommit == "unknown" || strings.HasPrefix(i.Version, "dev-") {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit[:7])
}

// String renders every known field, one per line.
func (i *Info) String() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "unknown" && i.GitCommit != "" {
		commit := "Commit: " + i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a released version.
func (i *Info) IsRelease() bool {
	return i.Version != "dev" && !strings.HasPrefix(i.Version, "dev-")
}

func readVCS() map[string]string {
	out := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	out["main"] = info.Main.Version
	for _, s := range info.Settings {
		out[s.Key] = s.Value
	}
	return out
}

func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
