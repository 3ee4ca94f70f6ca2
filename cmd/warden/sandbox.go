// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"log/slog"

	"github.com/spf13/pflag"

	"github.com/warden-foundation/warden/sandbox"
)

func sandboxCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: warden sandbox <test> [flags]")
		return errUsage
	}

	switch args[0] {
	case "test":
		return sandboxTestCmd(ctx, args[1:], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown sandbox subcommand: %s\n", args[0])
		return errUsage
	}
}

func sandboxTestCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("sandbox test", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	results := sandbox.SelfTest(ctx, app.controller)
	failed := 0
	for _, result := range results {
		status := "ok"
		if !result.Passed {
			status = "FAIL"
			failed++
		}
		line := fmt.Sprintf("%-4s %s", status, result.Name)
		if result.Detail != "" {
			line += ": " + result.Detail
		}
		fmt.Println(line)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(results))
	}
	fmt.Printf("all %d probes passed\n", len(results))
	return nil
}
