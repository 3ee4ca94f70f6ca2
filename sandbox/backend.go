// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"log/slog"
)

// CommandSpec describes a command requested by a tool call. Program and
// Args are untrusted strings originating from the model.
type CommandSpec struct {
	// Program is the executable name or path.
	Program string

	// Args are the program arguments.
	Args []string

	// Dir is the working directory. Empty means the caller's.
	Dir string
}

// CommandLine renders the spec as the single string the guard checks.
func (s CommandSpec) CommandLine() string {
	line := s.Program
	for _, arg := range s.Args {
		line += " " + arg
	}
	return line
}

// WrappedCommand is a complete, ready-to-run process description: the
// outcome of policy application, environment sanitization, and backend
// dispatch. Nothing has been spawned yet; the caller executes it.
type WrappedCommand struct {
	// Path is the program to spawn (the isolation wrapper when a
	// backend is active, the requested program in passthrough).
	Path string

	// Args are the full arguments, not including Path itself.
	Args []string

	// Env is the exact environment the spawned process receives. It is
	// always set explicitly, never inherited, so the allow-list is
	// enforced even in passthrough mode.
	Env []string

	// Dir is the working directory.
	Dir string

	// Backend names the isolation strategy that produced this command.
	Backend string
}

// Command materializes an exec.Cmd. The subprocess runs in its own
// process group, and cancellation of ctx kills the whole group, so a
// timed-out tool call cannot leave grandchildren holding the injected
// environment.
func (w *WrappedCommand) Command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, w.Path, w.Args...)
	cmd.Env = w.Env
	cmd.Dir = w.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second
	return cmd
}

// Backend is one OS-level isolation strategy. The set is closed and
// one member is selected per process lifetime by [Detect]; callers
// never branch on backend identity because every backend satisfies the
// same wrap contract.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Wrap produces the process description for spec under policy.
	// env is the already-sanitized (and possibly secret-augmented)
	// child environment; the backend must deliver it to the confined
	// process without placing values in argv, which is world-readable
	// on Linux via /proc/<pid>/cmdline.
	Wrap(policy *Policy, spec CommandSpec, env []string) (*WrappedCommand, error)
}

// noneBackend is the passthrough strategy: no OS-level isolation, but
// the sanitized environment still applies. Used when no isolation
// mechanism was detected, and for Mode == Disabled.
type noneBackend struct{}

func (noneBackend) Name() string { return "none" }

func (noneBackend) Wrap(_ *Policy, spec CommandSpec, env []string) (*WrappedCommand, error) {
	return &WrappedCommand{
		Path:    spec.Program,
		Args:    spec.Args,
		Env:     env,
		Dir:     spec.Dir,
		Backend: "none",
	}, nil
}

// Passthrough returns the no-isolation backend. Exported for the
// Disabled-mode path and for tests.
func Passthrough() Backend { return noneBackend{} }

// Detect probes the host once and selects the isolation backend for
// the process lifetime. Detection runs regardless of the configured
// mode, so enabling the sandbox later does not require a restart.
//
// Order: bubblewrap user namespaces on Linux, sandbox-exec on macOS,
// passthrough otherwise. Passthrough is a reduced-guarantee mode and
// is logged loudly; on hosted deployments [NewController] treats it as
// fatal.
func Detect(logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.Default()
	}

	switch runtime.GOOS {
	case "linux":
		if backend, err := detectBwrap(); err == nil {
			logger.Info("sandbox backend detected",
				"backend", backend.Name(),
				"bwrap", backend.bwrapPath,
				"version", backend.bwrapVersion,
				"supports_proc", backend.supportsProc,
			)
			return backend
		} else {
			logger.Warn("bubblewrap unavailable, falling back to passthrough", "reason", err)
		}
	case "darwin":
		if backend, err := detectSeatbelt(); err == nil {
			logger.Info("sandbox backend detected", "backend", backend.Name())
			return backend
		} else {
			logger.Warn("sandbox-exec unavailable, falling back to passthrough", "reason", err)
		}
	default:
		logger.Warn("no isolation backend for this platform", "os", runtime.GOOS)
	}

	logger.Warn("sandbox running in passthrough mode: environment sanitization only, no OS-level isolation")
	return noneBackend{}
}

// ExitError represents a non-zero exit from a wrapped command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// IsExitError checks if an error is an ExitError and returns the code.
func IsExitError(err error) (int, bool) {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code, true
	}
	return 0, false
}
