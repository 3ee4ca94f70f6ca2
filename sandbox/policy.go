// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"sync/atomic"
)

// Mode selects whether OS-level isolation is applied to wrapped
// commands. Environment sanitization and the package-manager guard run
// in both modes; Mode only controls the isolation backend.
type Mode int

const (
	// Disabled wraps commands as passthrough: sanitized environment,
	// no OS-level isolation.
	Disabled Mode = iota

	// Enabled dispatches commands to the detected isolation backend.
	Enabled
)

func (m Mode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "disabled":
		return Disabled, nil
	case "enabled":
		return Enabled, nil
	default:
		return Disabled, fmt.Errorf("invalid sandbox mode %q (must be enabled or disabled)", s)
	}
}

// Policy is one immutable snapshot of the sandbox rules. It is never
// field-mutated after construction: configuration reload builds a new
// Policy and replaces the old one through [Holder.Replace] in a single
// pointer swap, so a reader mid-Wrap never observes a half-updated
// policy.
type Policy struct {
	// Mode selects isolation on or off.
	Mode Mode

	// WritablePaths are the directories a wrapped command may write.
	// Canonicalized at Wrap time, not at load time, so a path created
	// after the policy was loaded still resolves.
	WritablePaths []string

	// ReadablePaths are additional read-only binds. The bubblewrap and
	// seatbelt backends expose the whole filesystem read-only by
	// design, so this is usually empty; it exists for profiles that
	// narrow reads.
	ReadablePaths []string

	// AllowPackageManagers disables the package-manager guard.
	// Forced to false on hosted deployments at every policy read.
	AllowPackageManagers bool
}

// clone returns a copy with its own slices, so a clamped snapshot
// cannot alias the caller's policy.
func (p *Policy) clone() *Policy {
	copied := &Policy{
		Mode:                 p.Mode,
		AllowPackageManagers: p.AllowPackageManagers,
	}
	copied.WritablePaths = append([]string(nil), p.WritablePaths...)
	copied.ReadablePaths = append([]string(nil), p.ReadablePaths...)
	return copied
}

// Holder owns the current policy snapshot. One writer (the config
// subsystem) publishes replacements; any number of readers load the
// current snapshot without locking.
type Holder struct {
	hosted  bool
	current atomic.Pointer[Policy]
}

// NewHolder creates a holder with an initial policy. On a hosted
// deployment an initial policy with Mode == Disabled is rejected: the
// caller supplied configuration that hosted enforcement forbids, and
// the rejection must surface rather than be silently overridden.
func NewHolder(hosted bool, initial Policy) (*Holder, error) {
	holder := &Holder{hosted: hosted}
	if err := holder.Replace(initial); err != nil {
		return nil, err
	}
	return holder, nil
}

// Replace publishes a new policy snapshot. The swap is atomic: readers
// see either the previous snapshot or the new one in full. On hosted
// deployments a Disabled mode or a package-manager opt-out is rejected
// with an explicit error and the previous snapshot stays in effect.
func (h *Holder) Replace(policy Policy) error {
	if h.hosted {
		if policy.Mode == Disabled {
			return fmt.Errorf("sandbox mode cannot be disabled on a hosted deployment")
		}
		if policy.AllowPackageManagers {
			return fmt.Errorf("package-manager commands cannot be allowed on a hosted deployment")
		}
	}
	h.current.Store(policy.clone())
	return nil
}

// Load returns the current policy snapshot. The hosted clamp is
// applied here too, at every read rather than only at Replace, so even a
// snapshot that slipped past validation (or a future code path that
// stores directly) can never resolve to Disabled on a hosted
// deployment. The returned policy must be treated as immutable.
func (h *Holder) Load() *Policy {
	policy := h.current.Load()
	if h.hosted && (policy.Mode == Disabled || policy.AllowPackageManagers) {
		clamped := policy.clone()
		clamped.Mode = Enabled
		clamped.AllowPackageManagers = false
		return clamped
	}
	return policy
}

// Hosted reports whether this holder enforces hosted clamping.
func (h *Holder) Hosted() bool {
	return h.hosted
}
