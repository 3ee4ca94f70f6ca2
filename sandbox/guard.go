// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrPolicyRejected marks a command blocked by the guard before any
// sandbox dispatch. The wrapped message carries the specific reason and
// is surfaced verbatim to the caller.
var ErrPolicyRejected = errors.New("command rejected by policy")

// packageManagers is the fixed set of package-manager invocations the
// guard blocks. Binaries these tools install land outside the durable
// capability directory and vanish on redeploy, producing silent
// capability loss; the managed install pipeline is the supported path.
var packageManagers = map[string]struct{}{
	"apt":      {},
	"apt-get":  {},
	"aptitude": {},
	"dpkg":     {},
	"yum":      {},
	"dnf":      {},
	"pacman":   {},
	"zypper":   {},
	"apk":      {},
	"brew":     {},
	"port":     {},
	"snap":     {},
	"flatpak":  {},
	"emerge":   {},
	"nix-env":  {},
}

// shellOperators splits a command string into the segments a shell
// would execute: pipe, and/or, sequence, background, newline.
var shellOperators = regexp.MustCompile(`\|\||&&|;|\||&|\n`)

// CheckCommand inspects a command string and returns an
// ErrPolicyRejected-wrapped error if any segment invokes a package
// manager. This is a policy filter, not a security boundary: a
// sufficiently creative command can smuggle an invocation past string
// splitting, and the filesystem policy then contains the blast radius.
//
// Segment parsing is deliberately shallow: the leading token of each
// segment (after sudo/env prefixes and VAR=value assignments) is
// compared by basename against the fixed deny set.
func CheckCommand(command string) error {
	for _, segment := range shellOperators.Split(command, -1) {
		tool := leadingTool(segment)
		if tool == "" {
			continue
		}
		if _, blocked := packageManagers[tool]; blocked {
			return fmt.Errorf("%w: %q invokes the package manager %q; "+
				"packages installed this way do not survive a redeploy; use a managed capability install instead",
				ErrPolicyRejected, strings.TrimSpace(segment), tool)
		}
	}
	return nil
}

// leadingTool extracts the effective command name of one shell segment:
// skips environment assignments and the sudo/env/command prefixes, then
// returns the basename of the first real token.
func leadingTool(segment string) string {
	fields := strings.Fields(segment)
	skipNext := false
	for _, field := range fields {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.Contains(field, "=") && !strings.HasPrefix(field, "/") {
			continue // VAR=value assignment
		}
		name := path.Base(field)
		switch name {
		case "sudo", "env", "command", "nohup", "time":
			continue
		}
		if strings.HasPrefix(field, "-") {
			// Flag to a skipped prefix. The common ones here take a
			// value (sudo -u USER, sudo -g GROUP, env -u VAR).
			switch name {
			case "-u", "-g", "--user", "--group":
				skipNext = true
			}
			continue
		}
		return name
	}
	return ""
}
