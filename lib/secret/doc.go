// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data such
// as credential values, master key material, and derived cipher keys.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, so secret material does not persist after release.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer of a given size
//   - [NewFromBytes] copies into protected memory, zeros the source
//   - [ReadFromEnv] consumes an environment variable (read once,
//     then removed from the process environment table)
//   - [ReadFromPath] reads from a file, or stdin when path is "-"
//
// Access via [Buffer.Bytes] (slice into the mmap region) or
// [Buffer.String] (heap copy, API boundaries only).
//
// Removing a variable from the current process environment does not
// erase it from /proc/<pid>/environ; the kernel keeps the initial
// environment visible to introspection. ReadFromEnv limits in-process
// exposure; the real protection is that every subprocess is created
// with an explicit clear-and-allow-list environment (see the sandbox
// package), so no sandboxed child can ever observe the master key
// variable.
package secret
