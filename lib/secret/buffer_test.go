// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestNew_ValidSize(t *testing.T) {
	buffer, err := New(64)
	if err != nil {
		t.Fatalf("New(64) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 64 {
		t.Errorf("expected length 64, got %d", buffer.Len())
	}

	// Memory should be zero-initialized by mmap.
	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("expected zero at index %d, got %d", index, value)
		}
	}
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := New(-5); err == nil {
		t.Fatal("expected error for negative size")
	}
}

func TestNewFromBytes_ZerosSource(t *testing.T) {
	source := []byte("hunter2-credential")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Expose() != "hunter2-credential" {
		t.Errorf("buffer content mismatch: %q", buffer.Expose())
	}

	for index, value := range source {
		if value != 0 {
			t.Fatalf("source not zeroed at index %d", index)
		}
	}
}

func TestNewFromBytes_Empty(t *testing.T) {
	if _, err := NewFromBytes(nil); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestBuffer_Equal(t *testing.T) {
	buffer, err := NewFromBytes([]byte("abc"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if !buffer.Equal([]byte("abc")) {
		t.Error("expected Equal for identical content")
	}
	if buffer.Equal([]byte("abd")) {
		t.Error("expected not Equal for different content")
	}
	if buffer.Equal([]byte("ab")) {
		t.Error("expected not Equal for different length")
	}
}

func TestBuffer_FormattingRedacts(t *testing.T) {
	buffer, err := NewFromBytes([]byte("hunter2-credential"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	for _, rendered := range []string{
		fmt.Sprintf("%v", buffer),
		fmt.Sprintf("%s", buffer),
		fmt.Sprintf("%#v", buffer),
	} {
		if strings.Contains(rendered, "hunter2") {
			t.Errorf("formatting leaked the secret: %q", rendered)
		}
		if !strings.Contains(rendered, "[redacted]") {
			t.Errorf("formatting did not redact: %q", rendered)
		}
	}

	if buffer.Expose() != "hunter2-credential" {
		t.Errorf("Expose mismatch: %q", buffer.Expose())
	}
}

func TestBuffer_CloseIsIdempotent(t *testing.T) {
	buffer, err := NewFromBytes([]byte("x"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestBuffer_ReadAfterClosePanics(t *testing.T) {
	buffer, err := NewFromBytes([]byte("x"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Error("expected panic reading closed buffer")
		}
	}()
	_ = buffer.Bytes()
}

func TestReadFromEnv_ConsumesVariable(t *testing.T) {
	const name = "WARDEN_TEST_SECRET_ENV"
	t.Setenv(name, "env-secret-value")

	buffer, err := ReadFromEnv(name)
	if err != nil {
		t.Fatalf("ReadFromEnv failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Expose() != "env-secret-value" {
		t.Errorf("buffer content mismatch: %q", buffer.Expose())
	}

	if _, stillSet := os.LookupEnv(name); stillSet {
		t.Error("environment variable still set after ReadFromEnv")
	}
}

func TestReadFromEnv_Unset(t *testing.T) {
	_, err := ReadFromEnv("WARDEN_TEST_SECRET_DOES_NOT_EXIST")
	if err == nil {
		t.Fatal("expected error for unset variable")
	}
}

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3}
	Zero(data)
	for index, value := range data {
		if value != 0 {
			t.Fatalf("byte %d not zeroed", index)
		}
	}
}
