// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/warden-foundation/warden/sandbox"
)

// ExecResult reports how an injected command went. By construction it
// carries no secret material: exit status, captured output, and timing
// only. Whatever the command itself printed is its own doing.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Inject decrypts the named aliases, runs one command through the
// sandbox controller with the values present in its environment, and
// returns the result. The plaintext exists in exactly two places while
// this runs: mmap-backed buffers in this process (closed before the
// child is waited on) and the child's environment.
//
// Decryption is all-or-nothing: a missing alias or a failed decrypt
// aborts before anything is spawned.
func (s *Store) Inject(ctx context.Context, controller *sandbox.Controller, aliases []string, spec sandbox.CommandSpec) (*ExecResult, error) {
	if s.cipher == nil {
		return nil, ErrSecretUnavailable
	}
	if len(aliases) == 0 {
		return nil, fmt.Errorf("inject needs at least one alias")
	}

	extra := make(map[string]string, len(aliases))
	for _, alias := range aliases {
		value, err := s.open(alias)
		if err != nil {
			return nil, err
		}
		// The env entry is a heap string; unavoidable, the child env is
		// built from strings. The mmap copy is released immediately.
		extra[EnvName(alias)] = value.Expose()
		value.Close()
	}

	wrapped, err := controller.WrapWithEnv(spec, extra)
	if err != nil {
		return nil, err
	}

	s.logger.Info("running command with injected secrets",
		"aliases", strings.Join(aliases, ","),
		"program", spec.Program,
		"backend", wrapped.Backend,
	)

	var stdout, stderr bytes.Buffer
	cmd := wrapped.Command(ctx)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := &ExecResult{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("running %s: %w", spec.Program, runErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// EnvName converts an alias to the environment variable the injected
// value appears under: upper-cased, with '-' mapped to '_'.
func EnvName(alias string) string {
	name := strings.ToUpper(alias)
	return strings.ReplaceAll(name, "-", "_")
}
