// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// bwrapBackend is the namespace-isolation strategy: commands run under
// bubblewrap with the whole filesystem bound read-only and the policy's
// writable paths bound read-write on top.
type bwrapBackend struct {
	bwrapPath    string
	bwrapVersion string

	// supportsProc is true when bubblewrap can unshare the PID
	// namespace and mount a fresh /proc. Without it the child shares
	// the host PID namespace and /proc stays read-only from the root
	// bind.
	supportsProc bool
}

func (b *bwrapBackend) Name() string { return "bwrap" }

// Wrap builds the bubblewrap invocation for spec.
//
// The child environment is delivered by setting it as the environment
// of the bwrap process itself (bwrap passes its environment through to
// the confined command). It is never encoded as --setenv arguments:
// argv is world-readable via /proc/<pid>/cmdline, and the environment
// may carry injected secret values. The Go side always sets cmd.Env
// explicitly from WrappedCommand.Env, so the bwrap process never
// inherits the parent's full environment either.
func (b *bwrapBackend) Wrap(policy *Policy, spec CommandSpec, env []string) (*WrappedCommand, error) {
	args := []string{
		"--ro-bind", "/", "/",
		"--dev", "/dev",
		"--tmpfs", "/tmp",
	}

	if b.supportsProc {
		args = append(args, "--unshare-pid", "--proc", "/proc")
	}
	args = append(args, "--unshare-ipc", "--unshare-uts")

	for _, writable := range policy.WritablePaths {
		canonical, err := canonicalizePath(writable)
		if err != nil {
			return nil, fmt.Errorf("resolving writable path %q: %w", writable, err)
		}
		args = append(args, "--bind", canonical, canonical)
	}
	for _, readable := range policy.ReadablePaths {
		canonical, err := canonicalizePath(readable)
		if err != nil {
			return nil, fmt.Errorf("resolving readable path %q: %w", readable, err)
		}
		args = append(args, "--ro-bind", canonical, canonical)
	}

	args = append(args, "--die-with-parent", "--new-session")

	if spec.Dir != "" {
		args = append(args, "--chdir", spec.Dir)
	}

	args = append(args, "--")
	args = append(args, spec.Program)
	args = append(args, spec.Args...)

	return &WrappedCommand{
		Path:    b.bwrapPath,
		Args:    args,
		Env:     env,
		Dir:     spec.Dir,
		Backend: b.Name(),
	}, nil
}

// detectBwrap probes for a working bubblewrap with unprivileged user
// namespaces, and whether PID unsharing with a fresh /proc works.
func detectBwrap() (*bwrapBackend, error) {
	bwrapPath, err := findBwrap()
	if err != nil {
		return nil, err
	}

	backend := &bwrapBackend{bwrapPath: bwrapPath}

	if out, err := exec.Command(bwrapPath, "--version").Output(); err == nil {
		backend.bwrapVersion = strings.TrimSpace(string(out))
	}

	if !userNamespacesEnabled() {
		return nil, fmt.Errorf("unprivileged user namespaces not enabled (set kernel.unprivileged_userns_clone=1)")
	}

	// Minimal smoke test: a user namespace with the root bind.
	smoke := exec.Command(bwrapPath, "--unshare-user", "--ro-bind", "/", "/", "--", "true")
	if err := smoke.Run(); err != nil {
		return nil, fmt.Errorf("bwrap smoke test failed: %w", err)
	}

	// Separate probe for PID unsharing + fresh /proc; some container
	// hosts allow user namespaces but deny the proc mount.
	procProbe := exec.Command(bwrapPath,
		"--unshare-user", "--unshare-pid",
		"--ro-bind", "/", "/",
		"--proc", "/proc",
		"--", "true")
	backend.supportsProc = procProbe.Run() == nil

	return backend, nil
}

// findBwrap locates the bubblewrap executable in its standard
// locations, then PATH.
func findBwrap() (string, error) {
	for _, candidate := range []string{"/usr/bin/bwrap", "/usr/local/bin/bwrap", "/bin/bwrap"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if found, err := exec.LookPath("bwrap"); err == nil {
		return found, nil
	}
	return "", fmt.Errorf("bubblewrap not installed")
}

// userNamespacesEnabled checks the kernel switch for unprivileged user
// namespaces. A missing sysctl file usually means they are allowed.
func userNamespacesEnabled() bool {
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(data)) != "0"
}

// canonicalizePath makes a policy path absolute and resolves symlinks,
// so a bind target cannot be redirected by a link planted inside a
// writable area. Canonicalization happens at call time, not at policy
// load time.
func canonicalizePath(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}
