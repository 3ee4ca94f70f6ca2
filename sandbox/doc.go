// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox is the containment layer between model-directed tool
// calls and the host. Every subprocess an agent asks for is described
// through [Controller.Wrap], which applies three gates in order:
//
//  1. The package-manager guard ([CheckCommand]), a policy filter over the
//     raw command string, run first and unconditionally.
//  2. Environment sanitization ([SanitizeEnvironment]): the child
//     environment is always rebuilt from an explicit allow-list,
//     even when isolation is disabled.
//  3. OS-level isolation, dispatched to the [Backend] detected once
//     at startup (bubblewrap namespaces on Linux, sandbox-exec on
//     macOS, passthrough otherwise).
//
// Policy ([Policy]) is runtime-mutable: it lives behind an atomic
// pointer in a [Holder] and is replaced wholesale on config reload, so
// an in-flight Wrap sees one complete snapshot and the next Wrap sees
// the new one. On hosted deployments the holder clamps the mode to
// enabled at every read, not just at load time.
//
// Wrap never spawns anything. It returns a [WrappedCommand], a
// complete process description the caller executes.
package sandbox
