// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"strings"
)

// seatbeltBackend is the native confinement strategy on macOS: commands
// run under sandbox-exec with a generated SBPL profile that denies file
// writes by default and allows them back for the policy's writable
// paths.
type seatbeltBackend struct {
	execPath string
}

func (s *seatbeltBackend) Name() string { return "seatbelt" }

// Wrap builds the sandbox-exec invocation for spec. The profile is
// passed inline with -p; it contains only paths, never environment
// values, so having it in argv is harmless. The child environment is
// delivered via WrappedCommand.Env like every other backend.
func (s *seatbeltBackend) Wrap(policy *Policy, spec CommandSpec, env []string) (*WrappedCommand, error) {
	writable := make([]string, 0, len(policy.WritablePaths))
	for _, path := range policy.WritablePaths {
		canonical, err := canonicalizePath(path)
		if err != nil {
			return nil, fmt.Errorf("resolving writable path %q: %w", path, err)
		}
		writable = append(writable, canonical)
	}

	profile := buildSeatbeltProfile(writable)

	args := []string{"-p", profile, "--", spec.Program}
	args = append(args, spec.Args...)

	return &WrappedCommand{
		Path:    s.execPath,
		Args:    args,
		Env:     env,
		Dir:     spec.Dir,
		Backend: s.Name(),
	}, nil
}

// buildSeatbeltProfile renders the SBPL policy: read everywhere,
// write only under the given paths plus the scratch locations processes
// need to function at all (temp dirs, devices).
func buildSeatbeltProfile(writablePaths []string) string {
	var b strings.Builder
	b.WriteString("(version 1)\n")
	b.WriteString("(deny default)\n")
	b.WriteString("(allow process*)\n")
	b.WriteString("(allow signal (target same-sandbox))\n")
	b.WriteString("(allow file-read*)\n")
	b.WriteString("(allow network*)\n")
	b.WriteString("(allow sysctl-read)\n")
	b.WriteString("(allow mach-lookup)\n")

	scratch := []string{"/tmp", "/private/tmp", "/private/var/tmp", "/var/folders", "/dev"}
	for _, path := range append(scratch, writablePaths...) {
		fmt.Fprintf(&b, "(allow file-write* (subpath %s))\n", sbplQuote(path))
	}
	return b.String()
}

// sbplQuote renders a path as an SBPL string literal.
func sbplQuote(path string) string {
	escaped := strings.ReplaceAll(path, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// detectSeatbelt checks for the sandbox-exec binary that ships with
// macOS.
func detectSeatbelt() (*seatbeltBackend, error) {
	const execPath = "/usr/bin/sandbox-exec"
	if _, err := os.Stat(execPath); err != nil {
		return nil, fmt.Errorf("sandbox-exec not found: %w", err)
	}
	return &seatbeltBackend{execPath: execPath}, nil
}
