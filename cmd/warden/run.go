// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"log/slog"

	"github.com/spf13/pflag"

	"github.com/warden-foundation/warden/sandbox"
)

func runCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	dir := fs.String("dir", "", "working directory for the command")
	inject := fs.StringSlice("inject", nil, "secret aliases to inject into the child environment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	command := fs.Args()
	if dash := fs.ArgsLenAtDash(); dash >= 0 {
		command = command[dash:]
	}
	if len(command) == 0 {
		fmt.Fprintln(os.Stderr, "usage: warden run [flags] -- <command> [args...]")
		return errUsage
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	spec := sandbox.CommandSpec{
		Program: command[0],
		Args:    command[1:],
		Dir:     *dir,
	}

	if len(*inject) > 0 {
		result, err := app.store.Inject(ctx, app.controller, *inject, spec)
		if err != nil {
			return err
		}
		os.Stdout.Write(result.Stdout)
		os.Stderr.Write(result.Stderr)
		if result.ExitCode != 0 {
			return &sandbox.ExitError{Code: result.ExitCode}
		}
		return nil
	}

	wrapped, err := app.controller.Wrap(spec)
	if err != nil {
		return err
	}
	logger.Debug("running wrapped command",
		"backend", wrapped.Backend,
		"path", wrapped.Path,
	)

	cmd := wrapped.Command(ctx)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &sandbox.ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("running %s: %w", spec.Program, err)
	}
	return nil
}
