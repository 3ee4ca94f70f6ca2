// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"strings"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	defer keypair.Close()

	ciphertext, err := Encrypt([]byte("escrow bundle payload"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if strings.Contains(ciphertext, "escrow bundle payload") {
		t.Error("ciphertext contains plaintext")
	}

	plaintext, err := Decrypt(ciphertext, keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	defer plaintext.Close()

	if plaintext.Expose() != "escrow bundle payload" {
		t.Errorf("round trip mismatch: %q", plaintext.Expose())
	}
}

func TestEncrypt_RequiresRecipient(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Fatal("expected error with no recipients")
	}
}

func TestEncrypt_MultipleRecipients(t *testing.T) {
	first, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	defer first.Close()

	second, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	defer second.Close()

	ciphertext, err := Encrypt([]byte("shared"), []string{first.PublicKey, second.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for _, keypair := range []*Keypair{first, second} {
		plaintext, err := Decrypt(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt failed for recipient: %v", err)
		}
		if plaintext.Expose() != "shared" {
			t.Errorf("round trip mismatch: %q", plaintext.Expose())
		}
		plaintext.Close()
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	owner, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	defer owner.Close()

	other, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	defer other.Close()

	ciphertext, err := Encrypt([]byte("bundle"), []string{owner.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := Decrypt(ciphertext, other.PrivateKey); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}

func TestParsePublicKey(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	defer keypair.Close()

	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := ParsePublicKey("age1notakey"); err == nil {
		t.Error("invalid key accepted")
	}
}
