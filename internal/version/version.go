/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at release build time.  Development builds fall back
// to the VCS metadata the Go toolchain embeds in module builds.
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// Build describes the running binary.
type Build struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// Current assembles the build description, filling fields the linker
// left unset from the embedded VCS metadata when it is available.
func Current() Build {
	b := Build{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if b.GitCommit == "" && len(setting.Value) >= 12 {
					b.GitCommit = setting.Value[:12]
				}
			case "vcs.time":
				if b.BuildDate == "" {
					b.BuildDate = setting.Value
				}
			}
		}
	}
	if b.GitCommit == "" {
		b.GitCommit = "unknown"
	}
	if b.BuildDate == "" {
		b.BuildDate = "unknown"
	}
	return b
}

// String renders the build description for the version command.
func (b Build) String() string {
	return fmt.Sprintf(`deployfish %s
  Git commit: %s
  Build date: %s
  Go version: %s
  Platform:   %s`, b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}

// Short returns just the version string without build metadata.
func Short() string {
	return Version
}
