// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package secrets implements the encrypted alias store for agent
// credentials. The model asks for a secret by alias; the plaintext
// value exists only inside the environment of one sanitized subprocess
// and is never returned through any API the model can read.
//
// The exposed operations are save, list, delete, and inject. There is
// deliberately no "get": a retrieval surface would hand any prompt
// injection the credentials wholesale, while injection bounds the
// exposure to what one command can do with them.
//
// Values are encrypted per record with XChaCha20-Poly1305 under a key
// derived from the master key via HKDF-SHA256. The record's alias is
// bound as associated data, so ciphertexts cannot be swapped between
// aliases on disk. The master key arrives in an environment variable
// that is read once at startup and removed.
package secrets
