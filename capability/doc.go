// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability manages the tool binaries an agent is allowed to
// acquire. Hosts are ephemeral: anything installed through a system
// package manager vanishes on redeploy, so the sandbox blocks those and
// this package provides the supported alternative: pinned, checksummed
// artifacts downloaded into a durable directory that is prepended to
// every sandboxed PATH.
//
// An install is a fixed pipeline: download to scratch, verify the
// pinned SHA-256 (hard fail on mismatch), extract, mark executable,
// publish with an atomic rename, probe the version, record a manifest
// entry. A binary is either fully published or absent; there is no
// half-installed state for a concurrent reader to observe.
package capability
