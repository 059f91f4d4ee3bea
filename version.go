package main

import (
	"runtime/debug"
	"strings"
)

// Set via -ldflags "-X main.buildVersion=... -X main.buildCommit=...".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func versionString() string {
	commit := buildCommit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	return formatVersion(buildVersion, commit)
}

// vcsRevision falls back to the revision stamped by `go build` in a checkout.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// formatVersion returns release tags unchanged and "dev-<sha7>" for dev builds.
func formatVersion(version, commit string) string {
	v := strings.TrimSpace(version)
	if v != "" && v != "dev" {
		return v
	}
	c := strings.TrimSpace(commit)
	if c == "" || c == "unknown" {
		return "dev"
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return "dev-" + c
}
