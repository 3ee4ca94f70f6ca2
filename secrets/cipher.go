// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/warden-foundation/warden/lib/secret"
)

// ErrSecretUnavailable means the store is disabled: no master key was
// provided at startup. Operations that need the key fail with this
// sentinel so callers can report "store disabled" rather than a
// crypto error.
var ErrSecretUnavailable = errors.New("secret store disabled: no master key")

// hkdfSalt and hkdfInfo pin the derivation context. Changing either
// invalidates every existing store, so they are versioned in the salt.
var (
	hkdfSalt = []byte("warden-secret-store-v1")
	hkdfInfo = []byte("record-encryption-key")
)

// Cipher encrypts and decrypts store records. The derived key lives in
// an mmap-backed buffer for the cipher's lifetime.
type Cipher struct {
	key *secret.Buffer
}

// NewCipherFromEnv reads the master key from the named environment
// variable, removes the variable from the process environment, and
// derives the record-encryption key. An unset variable returns
// ErrSecretUnavailable: the caller degrades to a disabled store instead
// of failing startup.
func NewCipherFromEnv(envVar string) (*Cipher, error) {
	master, err := secret.ReadFromEnv(envVar)
	if errors.Is(err, secret.ErrEnvUnset) {
		return nil, fmt.Errorf("%w (set %s)", ErrSecretUnavailable, envVar)
	}
	if err != nil {
		return nil, err
	}
	defer master.Close()
	return newCipher(master)
}

// newCipher derives the 32-byte record key from the master key
// material. The master buffer is borrowed, not closed.
func newCipher(master *secret.Buffer) (*Cipher, error) {
	key, err := secret.New(chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}

	kdf := hkdf.New(sha256.New, master.Bytes(), hkdfSalt, hkdfInfo)
	if _, err := io.ReadFull(kdf, key.Bytes()); err != nil {
		key.Close()
		return nil, fmt.Errorf("deriving record key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt seals plaintext for the given alias. The alias is bound as
// associated data: a ciphertext decrypts only under the alias it was
// saved as, so records cannot be swapped on disk.
func (c *Cipher) Encrypt(alias string, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.NewX(c.key.Bytes())
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, []byte(alias))
	return ciphertext, nonce, nil
}

// Decrypt opens a record's ciphertext under its alias. The plaintext is
// returned in an mmap-backed buffer the caller must close. Any
// tampering with ciphertext, nonce, or alias binding fails here.
func (c *Cipher) Decrypt(alias string, ciphertext, nonce []byte) (*secret.Buffer, error) {
	aead, err := chacha20poly1305.NewX(c.key.Bytes())
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(alias))
	if err != nil {
		return nil, fmt.Errorf("decrypting %q: %w", alias, err)
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, err
	}
	return buffer, nil
}

// Close zeros and releases the derived key. Idempotent.
func (c *Cipher) Close() error {
	if c.key != nil {
		return c.key.Close()
	}
	return nil
}
