// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path"

	"log/slog"
)

// Controller is the single entry point for turning an untrusted command
// request into a runnable process description. Every wrapped command
// passes three gates in order: the package-manager guard, environment
// sanitization, and isolation backend dispatch. The controller never
// spawns anything; callers execute the returned [WrappedCommand].
type Controller struct {
	holder        *Holder
	backend       Backend
	capabilityDir string
	logger        *slog.Logger
}

// NewController wires a policy holder to the detected backend.
// capabilityDir is prepended to every child PATH; it may be empty.
//
// On a hosted deployment a passthrough backend is a hard startup error:
// hosted mode promises OS-level isolation, and a host that cannot
// provide any must refuse to serve rather than degrade silently.
func NewController(holder *Holder, backend Backend, capabilityDir string, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if holder.Hosted() && backend.Name() == "none" {
		return nil, fmt.Errorf("no isolation backend available on a hosted deployment")
	}
	return &Controller{
		holder:        holder,
		backend:       backend,
		capabilityDir: capabilityDir,
		logger:        logger,
	}, nil
}

// Backend returns the name of the active isolation backend.
func (c *Controller) Backend() string {
	return c.backend.Name()
}

// Policy returns the current policy snapshot.
func (c *Controller) Policy() *Policy {
	return c.holder.Load()
}

// Replace publishes a new policy. Hosted restrictions are enforced by
// the holder.
func (c *Controller) Replace(policy Policy) error {
	if err := c.holder.Replace(policy); err != nil {
		return err
	}
	current := c.holder.Load()
	c.logger.Info("sandbox policy replaced",
		"mode", current.Mode.String(),
		"writable_paths", len(current.WritablePaths),
		"allow_package_managers", current.AllowPackageManagers,
	)
	return nil
}

// Wrap applies the current policy to spec and returns a ready-to-run
// process description.
func (c *Controller) Wrap(spec CommandSpec) (*WrappedCommand, error) {
	return c.WrapWithEnv(spec, nil)
}

// WrapWithEnv is Wrap with extra environment variables layered on top
// of the sanitized base. The secret injection path uses this: decrypted
// values enter the child environment here and exist nowhere else.
//
// Guard and sanitization run in every mode, including Disabled; only
// the isolation step is mode-dependent. The policy is loaded once at
// the top, so a concurrent Replace cannot split this call across two
// snapshots.
func (c *Controller) WrapWithEnv(spec CommandSpec, extra map[string]string) (*WrappedCommand, error) {
	policy := c.holder.Load()

	if !policy.AllowPackageManagers {
		if err := c.guard(spec); err != nil {
			c.logger.Warn("command rejected", "program", spec.Program, "error", err)
			return nil, err
		}
	}

	env := SanitizeEnvironment(os.Environ(), c.capabilityDir)
	env = mergeEnvironment(env, extra)

	backend := c.backend
	if policy.Mode == Disabled {
		backend = Passthrough()
	}

	wrapped, err := backend.Wrap(policy, spec, env)
	if err != nil {
		return nil, fmt.Errorf("wrapping command with %s backend: %w", backend.Name(), err)
	}
	return wrapped, nil
}

// guard runs the package-manager check over the rendered command line
// and, when the program is itself a shell, over the -c payload. Without
// the payload check `sh -c "apt-get install x"` would pass while the
// bare form is rejected.
func (c *Controller) guard(spec CommandSpec) error {
	if err := CheckCommand(spec.CommandLine()); err != nil {
		return err
	}
	switch path.Base(spec.Program) {
	case "sh", "bash", "zsh", "dash", "ksh":
		for i, arg := range spec.Args {
			if arg == "-c" && i+1 < len(spec.Args) {
				if err := CheckCommand(spec.Args[i+1]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
