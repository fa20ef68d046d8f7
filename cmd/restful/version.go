package main

import (
	_ "embed"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var embeddedVersion string

type VersionCmd struct {
	Short bool `help:"Print only the version number."`
}

func (c *VersionCmd) Run(out io.Writer) error {
	if c.Short {
		fmt.Fprintln(out, Version())
		return nil
	}
	fmt.Fprintf(out, "restful %s (%s %s/%s)\n", Version(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

// Version returns the version of the restful command.
//
// When installed via `go install ...@version`, returns the module version (e.g., "v0.1.0").
// Otherwise it is "devel-0.1.0", with "+abc1234" appended when the build
// recorded a VCS revision.
func Version() string {
	info, _ := debug.ReadBuildInfo()
	return buildVersion(strings.TrimSpace(embeddedVersion), info)
}

// buildVersion derives the version from base and the build info, which may be nil.
func buildVersion(base string, info *debug.BuildInfo) string {
	if info == nil {
		return base
	}

	// Installed with go install: the module version is authoritative.
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	// Development build: devel-{version}+{revision}.
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return "devel-" + base + "+" + s.Value[:7]
		}
	}
	return "devel-" + base
}
