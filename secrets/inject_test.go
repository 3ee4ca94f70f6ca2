// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/warden-foundation/warden/sandbox"
)

func newTestController(t *testing.T) *sandbox.Controller {
	t.Helper()
	holder, err := sandbox.NewHolder(false, sandbox.Policy{Mode: sandbox.Disabled})
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	controller, err := sandbox.NewController(holder, sandbox.Passthrough(), "", nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return controller
}

func TestInjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	saveValue(t, store, "github-token", "secret-value")

	controller := newTestController(t)
	result, err := store.Inject(context.Background(), controller,
		[]string{"github-token"},
		sandbox.CommandSpec{
			Program: "sh",
			Args:    []string{"-c", `test "$GITHUB_TOKEN" = "secret-value"`},
		})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, stderr = %s", result.ExitCode, result.Stderr)
	}

	// The result must not carry the plaintext anywhere.
	if strings.Contains(string(result.Stdout), "secret-value") ||
		strings.Contains(string(result.Stderr), "secret-value") {
		t.Error("plaintext leaked into captured output")
	}
}

func TestInjectMultipleAliases(t *testing.T) {
	store := newTestStore(t)
	saveValue(t, store, "api-key", "k1")
	saveValue(t, store, "db_password", "k2")

	controller := newTestController(t)
	result, err := store.Inject(context.Background(), controller,
		[]string{"api-key", "db_password"},
		sandbox.CommandSpec{
			Program: "sh",
			Args:    []string{"-c", `test "$API_KEY" = k1 && test "$DB_PASSWORD" = k2`},
		})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
}

func TestInjectMissingAliasAbortsBeforeSpawn(t *testing.T) {
	store := newTestStore(t)
	saveValue(t, store, "present", "v")

	marker := filepath.Join(t.TempDir(), "spawned")
	controller := newTestController(t)
	_, err := store.Inject(context.Background(), controller,
		[]string{"present", "absent"},
		sandbox.CommandSpec{Program: "touch", Args: []string{marker}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Inject = %v, want ErrNotFound", err)
	}

	if _, statErr := os.Stat(marker); statErr == nil {
		t.Error("command spawned despite missing alias")
	}
}

func TestInjectNonZeroExit(t *testing.T) {
	store := newTestStore(t)
	saveValue(t, store, "token", "v")

	controller := newTestController(t)
	result, err := store.Inject(context.Background(), controller,
		[]string{"token"},
		sandbox.CommandSpec{Program: "sh", Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestInjectDisabledStore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "secrets.cbor"), nil, nil)
	controller := newTestController(t)

	_, err := store.Inject(context.Background(), controller,
		[]string{"any"}, sandbox.CommandSpec{Program: "true"})
	if !errors.Is(err, ErrSecretUnavailable) {
		t.Errorf("Inject on disabled store = %v, want ErrSecretUnavailable", err)
	}
}

func TestEnvName(t *testing.T) {
	cases := map[string]string{
		"github-token": "GITHUB_TOKEN",
		"db_password":  "DB_PASSWORD",
		"key2":         "KEY2",
	}
	for alias, want := range cases {
		if got := EnvName(alias); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", alias, got, want)
		}
	}
}
