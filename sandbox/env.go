// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"sort"
	"strings"
)

// allowedEnvVars is the full set of parent environment variables a
// child process may inherit, PATH aside (PATH is rebuilt, not
// inherited). Everything else in the parent environment (API keys,
// cloud credentials, the master key variable before it was consumed)
// is dropped.
var allowedEnvVars = []string{
	"HOME",
	"USER",
	"LOGNAME",
	"SHELL",
	"LANG",
	"LC_ALL",
	"TERM",
	"TZ",
}

// defaultPath is used when the parent has no PATH at all.
const defaultPath = "/usr/local/bin:/usr/bin:/bin"

// SanitizeEnvironment builds a child process environment from scratch.
// The parent environment is never passed through: the child gets
// exactly the allow-listed variables that are present in parentEnv,
// plus a PATH with capabilityDir prepended so managed binaries win
// over same-named system binaries.
//
// This runs for every wrapped command, including passthrough mode.
// Scrubbing the parent's own environment is not a substitute: on Linux
// the initial environment remains readable via /proc/<pid>/environ
// regardless of in-process removal. The only reliable boundary is an
// explicit clear-and-allow-list at the point of subprocess creation,
// which is what this function feeds.
//
// The result is sorted for deterministic command descriptions.
func SanitizeEnvironment(parentEnv []string, capabilityDir string) []string {
	parent := make(map[string]string, len(parentEnv))
	for _, entry := range parentEnv {
		key, value, found := strings.Cut(entry, "=")
		if found {
			parent[key] = value
		}
	}

	child := make([]string, 0, len(allowedEnvVars)+1)
	for _, key := range allowedEnvVars {
		if value, ok := parent[key]; ok {
			child = append(child, key+"="+value)
		}
	}

	searchPath := parent["PATH"]
	if searchPath == "" {
		searchPath = defaultPath
	}
	if capabilityDir != "" {
		searchPath = capabilityDir + ":" + searchPath
	}
	child = append(child, "PATH="+searchPath)

	sort.Strings(child)
	return child
}

// mergeEnvironment appends extra variables on top of a sanitized base.
// Extra keys override base keys of the same name. Used by the secret
// injection path: decrypted values are added here, after sanitization,
// and exist only in the returned slice.
func mergeEnvironment(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	merged := make(map[string]string, len(base)+len(extra))
	for _, entry := range base {
		key, value, found := strings.Cut(entry, "=")
		if found {
			merged[key] = value
		}
	}
	for key, value := range extra {
		merged[key] = value
	}

	result := make([]string, 0, len(merged))
	for key, value := range merged {
		result = append(result, key+"="+value)
	}
	sort.Strings(result)
	return result
}
