// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/spf13/pflag"

	"github.com/warden-foundation/warden/capability"
)

func capabilityCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: warden capability <list|install> [flags]")
		return errUsage
	}

	switch args[0] {
	case "list":
		return capabilityListCmd(ctx, args[1:], logger)
	case "install":
		return capabilityInstallCmd(ctx, args[1:], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown capability subcommand: %s\n", args[0])
		return errUsage
	}
}

func capabilityListCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("capability list", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	namesOnly := fs.Bool("names", false, "print only the names of available capabilities")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	if *namesOnly {
		fmt.Println(strings.Join(app.manager.Available(), "\n"))
		return nil
	}

	for _, record := range app.manager.Status() {
		line := fmt.Sprintf("%-12s %-10s", record.Name, record.State)
		if record.State == capability.StateAvailable {
			line += fmt.Sprintf(" %s (%s, %s)", record.Version, record.Source, record.Path)
		}
		if record.Message != "" {
			line += " " + record.Message
		}
		fmt.Println(line)
	}
	return nil
}

func capabilityInstallCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("capability install", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: warden capability install <name>")
		return errUsage
	}
	name := fs.Arg(0)

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	if err := app.manager.Install(ctx, name); err != nil {
		return err
	}

	record, err := app.manager.Lookup(name)
	if err != nil {
		return err
	}
	fmt.Printf("installed %s %s -> %s\n", record.Name, record.Version, record.Path)
	return nil
}
