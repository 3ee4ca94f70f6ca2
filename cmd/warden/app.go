// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/warden-foundation/warden/capability"
	"github.com/warden-foundation/warden/lib/config"
	"github.com/warden-foundation/warden/sandbox"
	"github.com/warden-foundation/warden/secrets"
)

// app is the wired-up runtime: configuration, sandbox controller,
// capability manager, and secret store. One app is built per
// invocation.
type app struct {
	cfg        *config.Config
	controller *sandbox.Controller
	manager    *capability.Manager
	store      *secrets.Store
	logger     *slog.Logger
}

// loadConfig resolves the configuration: the --config flag wins, then
// WARDEN_CONFIG, then built-in defaults for local development.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if os.Getenv("WARDEN_CONFIG") != "" {
		return config.Load()
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the full runtime from configuration. Backend detection
// runs here, once; a hosted deployment without a working isolation
// backend fails startup.
func newApp(ctx context.Context, configPath string, logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	mode, err := sandbox.ParseMode(cfg.Sandbox.Mode)
	if err != nil {
		return nil, err
	}
	hosted := cfg.Deployment == config.Hosted

	holder, err := sandbox.NewHolder(hosted, sandbox.Policy{
		Mode:                 mode,
		WritablePaths:        cfg.Sandbox.WritablePaths,
		ReadablePaths:        cfg.Sandbox.ReadablePaths,
		AllowPackageManagers: cfg.Sandbox.AllowPackageManagers,
	})
	if err != nil {
		return nil, err
	}

	backend := sandbox.Detect(logger)
	controller, err := sandbox.NewController(holder, backend, cfg.Paths.Bin, logger)
	if err != nil {
		return nil, err
	}

	registry, err := capability.NewRegistry(cfg.Capabilities.CatalogFile)
	if err != nil {
		return nil, err
	}
	probeTimeout, err := time.ParseDuration(cfg.Capabilities.ProbeTimeout)
	if err != nil {
		return nil, fmt.Errorf("capabilities.probe_timeout: %w", err)
	}
	manager, err := capability.NewManager(ctx, capability.ManagerConfig{
		Registry:     registry,
		BinDir:       cfg.Paths.Bin,
		ScratchDir:   cfg.Paths.Scratch,
		ManifestPath: filepath.Join(cfg.Paths.State, "capabilities.cbor"),
		ProbeTimeout: probeTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	cipher, err := secrets.NewCipherFromEnv(cfg.Secrets.MasterKeyEnv)
	if errors.Is(err, secrets.ErrSecretUnavailable) {
		logger.Warn("secret store disabled", "reason", err)
		cipher = nil
	} else if err != nil {
		return nil, err
	}
	store := secrets.NewStore(cfg.Secrets.StorePath, cipher, logger)

	return &app{
		cfg:        cfg,
		controller: controller,
		manager:    manager,
		store:      store,
		logger:     logger,
	}, nil
}
