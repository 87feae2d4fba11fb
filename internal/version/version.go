// Package version reports how the sitepack binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version of the application
	Version = "dev"

	// Commit is the git commit hash when the binary was built
	Commit = ""

	// BuildTime is the time the binary was built (RFC3339)
	BuildTime = ""
)

// Info contains version and build information
type Info struct {
	Version   string            `json:"version"`
	Commit    string            `json:"commit,omitempty"`
	Dirty     bool              `json:"dirty"`
	BuildTime time.Time         `json:"build_time,omitempty"`
	GoVersion string            `json:"go_version"`
	Platform  string            `json:"platform"`
	Compilers map[string]string `json:"compilers,omitempty"`
}

// compilerModules are the modules whose versions decide the output bytes.
var compilerModules = map[string]string{
	"github.com/evanw/esbuild":      "esbuild",
	"github.com/bep/golibsass":      "libsass",
	"github.com/yuin/goldmark":      "goldmark",
	"github.com/klauspost/compress": "compress",
}

// Get collects build information from the ldflags variables, falling back
// to the module build info embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	fromBuildInfo(&info, bi)
	return info
}

func fromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if (info.Version == "" || info.Version == "dev") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime.IsZero() {
				info.BuildTime = parseTime(s.Value)
			}
		}
	}

	for _, dep := range bi.Deps {
		if name, ok := compilerModules[dep.Path]; ok {
			if info.Compilers == nil {
				info.Compilers = make(map[string]string)
			}
			info.Compilers[name] = dep.Version
		}
	}
}

// Short returns "version (commit)" with the commit abbreviated.
func (i Info) Short() string {
	s := i.Version
	if len(i.Commit) >= 7 {
		s += " (" + i.Commit[:7] + ")"
	}
	if i.Dirty {
		s += " dirty"
	}
	return s
}

// String returns every field, one per line.
func (i Info) String() string {
	parts := []string{"Version: " + i.Version}
	if i.Commit != "" {
		parts = append(parts, "Commit: "+i.Commit)
	}
	if !i.BuildTime.IsZero() {
		parts = append(parts, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	parts = append(parts, "Go: "+i.GoVersion, "Platform: "+i.Platform)

	for _, name := range []string{"esbuild", "libsass", "goldmark", "compress"} {
		if v, ok := i.Compilers[name]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", name, v))
		}
	}
	return strings.Join(parts, "\n")
}

// IsRelease reports whether this is a tagged, clean build.
func (i Info) IsRelease() bool {
	return i.Version != "" && i.Version != "dev" && !i.Dirty
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
