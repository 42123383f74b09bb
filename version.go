package main

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X main.buildVersion=... -X main.buildCommit=...".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func versionString() string {
	version, commit := buildVersion, buildCommit
	if info, ok := debug.ReadBuildInfo(); ok {
		version, commit = fromBuildInfo(info, version, commit)
	}
	return formatVersion(version, commit)
}

// fromBuildInfo fills in what ldflags left unset from the module version
// recorded by go install and the vcs.revision setting.
func fromBuildInfo(info *debug.BuildInfo, version, commit string) (string, string) {
	if strings.TrimSpace(version) == "dev" || strings.TrimSpace(version) == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			version = v
		}
	}
	if c := strings.TrimSpace(commit); c == "" || c == "unknown" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				commit = s.Value
			}
		}
	}
	return version, commit
}

func formatVersion(version, commit string) string {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}
	if v != "dev" {
		return v
	}

	c := shortCommit(commit)
	if c == "" {
		return "dev"
	}
	return "dev-" + c
}

func shortCommit(commit string) string {
	c := strings.TrimSpace(commit)
	if c == "" || c == "unknown" {
		return ""
	}
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
