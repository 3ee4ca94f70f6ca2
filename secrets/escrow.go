// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"fmt"
	"time"

	"github.com/warden-foundation/warden/lib/codec"
	"github.com/warden-foundation/warden/lib/secret"
	"github.com/warden-foundation/warden/lib/sealed"
)

// escrowBundle is the decrypted export payload: every alias with its
// plaintext value. It exists in memory only between decryption and age
// sealing; on disk and on stdout it is always ciphertext.
type escrowBundle struct {
	Version    int               `cbor:"version"`
	ExportedAt time.Time         `cbor:"exported_at"`
	Secrets    map[string][]byte `cbor:"secrets"`
}

const escrowVersion = 1

// Export decrypts every record and seals the bundle to the operator age
// recipients. The returned string is base64 age ciphertext. This is
// the only form in which secret material ever leaves the host, and only
// a holder of a recipient identity can open it.
func (s *Store) Export(recipients []string) (string, error) {
	if s.cipher == nil {
		return "", ErrSecretUnavailable
	}
	if len(recipients) == 0 {
		return "", fmt.Errorf("export needs at least one escrow recipient")
	}
	for _, recipient := range recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	table, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if len(table.Records) == 0 {
		return "", fmt.Errorf("secret store is empty")
	}

	bundle := escrowBundle{
		Version:    escrowVersion,
		ExportedAt: time.Now().UTC(),
		Secrets:    make(map[string][]byte, len(table.Records)),
	}
	defer func() {
		for _, value := range bundle.Secrets {
			secret.Zero(value)
		}
	}()

	for alias, entry := range table.Records {
		value, err := s.cipher.Decrypt(alias, entry.Ciphertext, entry.Nonce)
		if err != nil {
			return "", err
		}
		plaintext := make([]byte, value.Len())
		copy(plaintext, value.Bytes())
		value.Close()
		bundle.Secrets[alias] = plaintext
	}

	payload, err := codec.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("encoding escrow bundle: %w", err)
	}
	defer secret.Zero(payload)

	ciphertext, err := sealed.Encrypt(payload, recipients)
	if err != nil {
		return "", err
	}

	s.logger.Info("secret store exported", "secrets", len(bundle.Secrets), "recipients", len(recipients))
	return ciphertext, nil
}

// Import opens an escrow bundle with the operator identity and saves
// every secret into this store, re-encrypted under the local master
// key. Existing aliases are overwritten. Returns the number of secrets
// imported.
func (s *Store) Import(ciphertext string, identity *secret.Buffer) (int, error) {
	if s.cipher == nil {
		return 0, ErrSecretUnavailable
	}

	payload, err := sealed.Decrypt(ciphertext, identity)
	if err != nil {
		return 0, err
	}
	defer payload.Close()

	var bundle escrowBundle
	if err := codec.Unmarshal(payload.Bytes(), &bundle); err != nil {
		return 0, fmt.Errorf("decoding escrow bundle: %w", err)
	}
	defer func() {
		for _, value := range bundle.Secrets {
			secret.Zero(value)
		}
	}()

	if bundle.Version != escrowVersion {
		return 0, fmt.Errorf("unsupported escrow bundle version %d", bundle.Version)
	}

	imported := 0
	for alias, plaintext := range bundle.Secrets {
		value, err := secret.NewFromBytes(plaintext)
		if err != nil {
			return imported, err
		}
		err = s.Save(alias, value)
		value.Close()
		if err != nil {
			return imported, fmt.Errorf("importing %q: %w", alias, err)
		}
		imported++
	}

	s.logger.Info("secret store imported", "secrets", imported)
	return imported, nil
}
