// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"errors"
	"os"
	"testing"
)

func TestNewCipherFromEnvConsumesVariable(t *testing.T) {
	t.Setenv("WARDEN_TEST_MASTER_KEY", "correct horse battery staple")

	cipher, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY")
	if err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}
	defer cipher.Close()

	if _, present := os.LookupEnv("WARDEN_TEST_MASTER_KEY"); present {
		t.Error("master key variable still set after read")
	}
}

func TestNewCipherFromEnvUnset(t *testing.T) {
	_, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY_UNSET")
	if !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("error = %v, want ErrSecretUnavailable", err)
	}
}

func TestCipherRoundTrip(t *testing.T) {
	t.Setenv("WARDEN_TEST_MASTER_KEY", "test key material")
	cipher, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY")
	if err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}
	defer cipher.Close()

	ciphertext, nonce, err := cipher.Encrypt("github-token", []byte("ghp_example"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	plaintext, err := cipher.Decrypt("github-token", ciphertext, nonce)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	defer plaintext.Close()

	if !plaintext.Equal([]byte("ghp_example")) {
		t.Error("round trip changed the value")
	}
}

func TestCipherAliasBinding(t *testing.T) {
	t.Setenv("WARDEN_TEST_MASTER_KEY", "test key material")
	cipher, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY")
	if err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}
	defer cipher.Close()

	ciphertext, nonce, err := cipher.Encrypt("prod-key", []byte("value"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// A ciphertext saved under one alias must not open under another.
	if _, err := cipher.Decrypt("dev-key", ciphertext, nonce); err == nil {
		t.Error("record decrypted under a different alias")
	}
}

func TestCipherRejectsTampering(t *testing.T) {
	t.Setenv("WARDEN_TEST_MASTER_KEY", "test key material")
	cipher, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY")
	if err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}
	defer cipher.Close()

	ciphertext, nonce, err := cipher.Encrypt("alias", []byte("value"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	ciphertext[0] ^= 0x01
	if _, err := cipher.Decrypt("alias", ciphertext, nonce); err == nil {
		t.Error("tampered ciphertext decrypted")
	}
}
