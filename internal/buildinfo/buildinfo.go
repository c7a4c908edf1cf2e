// Package buildinfo reports the version stamped into the binary.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X fleetplan/internal/buildinfo.Version=..."
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"builtAt"`
	GoVersion string `json:"goVersion"`
	Modified  bool   `json:"modified,omitempty"`
}

// Info falls back to the VCS stamps of the Go toolchain when the linker
// flags were not set.
func Info() Build {
	b := Build{Version: Version, Commit: Commit, BuiltAt: BuiltAt, GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.BuiltAt == "" {
				b.BuiltAt = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}
