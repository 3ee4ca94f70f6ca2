// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/warden-foundation/warden/lib/secret"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("WARDEN_TEST_MASTER_KEY", "store test master key")
	cipher, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY")
	if err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}
	t.Cleanup(func() { cipher.Close() })
	return NewStore(filepath.Join(t.TempDir(), "secrets.cbor"), cipher, nil)
}

func saveValue(t *testing.T, store *Store, alias, value string) {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()
	if err := store.Save(alias, buffer); err != nil {
		t.Fatalf("Save(%q): %v", alias, err)
	}
}

func TestStoreSaveListDelete(t *testing.T) {
	store := newTestStore(t)

	saveValue(t, store, "github-token", "ghp_one")
	saveValue(t, store, "aws-key", "AKIA_two")

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 || infos[0].Alias != "aws-key" || infos[1].Alias != "github-token" {
		t.Errorf("List = %+v", infos)
	}

	if err := store.Delete("aws-key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	infos, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Alias != "github-token" {
		t.Errorf("List after delete = %+v", infos)
	}
}

func TestStoreOverwriteKeepsCreatedAt(t *testing.T) {
	store := newTestStore(t)

	saveValue(t, store, "token", "first")
	before, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	saveValue(t, store, "token", "second")
	after, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if !after[0].CreatedAt.Equal(before[0].CreatedAt) {
		t.Error("overwrite changed CreatedAt")
	}

	value, err := store.open("token")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer value.Close()
	if !value.Equal([]byte("second")) {
		t.Error("overwrite did not replace the value")
	}
}

func TestStoreDeleteMissing(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(ghost) = %v, want ErrNotFound", err)
	}
}

func TestStoreRejectsInvalidAlias(t *testing.T) {
	store := newTestStore(t)
	buffer, err := secret.NewFromBytes([]byte("v"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	for _, alias := range []string{"", "UPPER", "has space", "-leading", "a/b"} {
		if err := store.Save(alias, buffer); err == nil {
			t.Errorf("alias %q accepted", alias)
		}
	}
}

func TestDisabledStore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "secrets.cbor"), nil, nil)

	if store.Enabled() {
		t.Error("store without cipher reports enabled")
	}

	buffer, err := secret.NewFromBytes([]byte("v"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if err := store.Save("alias", buffer); !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("Save on disabled store = %v, want ErrSecretUnavailable", err)
	}
	if _, err := store.open("alias"); !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("open on disabled store = %v, want ErrSecretUnavailable", err)
	}

	// Listing needs no key.
	if _, err := store.List(); err != nil {
		t.Errorf("List on disabled store: %v", err)
	}
}

func TestStoreFilePermissions(t *testing.T) {
	store := newTestStore(t)
	saveValue(t, store, "token", "value")

	info, err := os.Stat(store.path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("store file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestStorePersistsAcrossOpen(t *testing.T) {
	t.Setenv("WARDEN_TEST_MASTER_KEY_A", "persistent master key")
	cipher, err := NewCipherFromEnv("WARDEN_TEST_MASTER_KEY_A")
	if err != nil {
		t.Fatalf("NewCipherFromEnv: %v", err)
	}
	defer cipher.Close()

	path := filepath.Join(t.TempDir(), "secrets.cbor")
	first := NewStore(path, cipher, nil)
	saveValue(t, first, "token", "durable")

	// Same key material, fresh store handle: the record must decrypt.
	second := NewStore(path, cipher, nil)
	value, err := second.open("token")
	if err != nil {
		t.Fatalf("open after reopen: %v", err)
	}
	defer value.Close()
	if !value.Equal([]byte("durable")) {
		t.Error("reopened store returned a different value")
	}
}
