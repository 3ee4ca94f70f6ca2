// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/warden-foundation/warden/lib/secret"
)

// Resolve turns a configuration value into secret material at the
// moment of use. Three forms are accepted:
//
//	secret:alias   decrypts the store record
//	env:NAME       reads the named environment variable
//	anything else  is the literal value itself
//
// Configuration files should only ever carry the secret: form; the
// other two exist for development and migration. The result is an
// mmap-backed buffer the caller must close; resolved values never land
// in displayable configuration.
func Resolve(value string, store *Store) (*secret.Buffer, error) {
	switch {
	case strings.HasPrefix(value, "secret:"):
		alias := strings.TrimPrefix(value, "secret:")
		if store == nil {
			return nil, ErrSecretUnavailable
		}
		return store.open(alias)

	case strings.HasPrefix(value, "env:"):
		name := strings.TrimPrefix(value, "env:")
		envValue, ok := os.LookupEnv(name)
		if !ok || envValue == "" {
			return nil, fmt.Errorf("environment variable %s is not set", name)
		}
		return secret.NewFromBytes([]byte(envValue))

	case value == "":
		return nil, fmt.Errorf("empty secret reference")

	default:
		return secret.NewFromBytes([]byte(value))
	}
}
