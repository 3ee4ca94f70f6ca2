// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// ReadFromEnv consumes a secret from the named environment variable.
// The variable is read exactly once and then removed from the process's
// mutable environment table, so later lookups (and accidental logging of
// os.Environ) do not see it. Returns ErrEnvUnset if the variable is not
// set or empty.
//
// The removal does not scrub /proc/<pid>/environ; see the package
// documentation for why subprocess environment construction is the
// boundary that actually matters.
func ReadFromEnv(name string) (*Buffer, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s", ErrEnvUnset, name)
	}
	os.Unsetenv(name)

	// []byte(value) is a fresh heap copy; NewFromBytes zeros it. The
	// original string backing the env var stays on the heap until GC,
	// since os.LookupEnv returns a string.
	return NewFromBytes([]byte(value))
}

// ErrEnvUnset is returned by ReadFromEnv when the variable is absent.
// Callers use it to distinguish "no master key provided" (degrade to a
// disabled secret store) from a malformed key.
var ErrEnvUnset = fmt.Errorf("secret: environment variable not set")

// ReadFromPath reads a secret from a file path, or from stdin if path is
// "-". The returned buffer is mmap-backed and must be closed by the
// caller. Leading/trailing whitespace is trimmed before storing. Returns
// an error if the source is empty after trimming.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte

	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			return nil, fmt.Errorf("stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret is empty")
	}

	// NewFromBytes copies into mmap-backed memory and zeros trimmed.
	buffer, err := NewFromBytes(trimmed)
	// Zero remaining bytes (whitespace prefix/suffix) not covered by trimmed.
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
