// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/spf13/pflag"

	"github.com/warden-foundation/warden/capability"
)

func statusCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	policy := app.controller.Policy()
	fmt.Printf("deployment:  %s\n", app.cfg.Deployment)
	fmt.Printf("backend:     %s\n", app.controller.Backend())
	fmt.Printf("sandbox:     %s\n", policy.Mode)
	if len(policy.WritablePaths) > 0 {
		fmt.Printf("writable:    %s\n", strings.Join(policy.WritablePaths, ", "))
	}
	fmt.Printf("pkg guard:   %s\n", guardState(policy.AllowPackageManagers))

	fmt.Println("\ncapabilities:")
	for _, record := range app.manager.Status() {
		line := fmt.Sprintf("  %-12s %s", record.Name, record.State)
		if record.State == capability.StateAvailable {
			line += fmt.Sprintf("  %s (%s)", record.Version, record.Source)
		}
		if record.Message != "" {
			line += "  " + record.Message
		}
		fmt.Println(line)
	}

	fmt.Println()
	if app.store.Enabled() {
		infos, err := app.store.List()
		if err != nil {
			return err
		}
		fmt.Printf("secrets:     enabled, %d stored\n", len(infos))
	} else {
		fmt.Printf("secrets:     disabled (set %s)\n", app.cfg.Secrets.MasterKeyEnv)
	}
	return nil
}

func guardState(allowPackageManagers bool) string {
	if allowPackageManagers {
		return "disabled by config"
	}
	return "active"
}
