// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Warden.
//
// Configuration is loaded from a single file specified by:
//   - WARDEN_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Secret values never appear in configuration literally: any value that
// needs a credential uses the `secret:alias` reference form, resolved at
// the moment of use through the secret store (see the secrets package).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Deployment identifies who controls the host the agent runs on.
type Deployment string

const (
	// Hosted means Warden runs on infrastructure the operator does not
	// fully trust to user configuration: sandboxing is unconditionally
	// enforced and the package-manager guard cannot be disabled.
	Hosted Deployment = "hosted"

	// SelfHosted means the user owns the host and may relax policy.
	SelfHosted Deployment = "self-hosted"
)

// Config is the master configuration for Warden.
type Config struct {
	// Deployment selects hosted or self-hosted enforcement.
	Deployment Deployment `yaml:"deployment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Sandbox configures the execution sandbox policy.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Capabilities configures the managed-capability system.
	Capabilities CapabilityConfig `yaml:"capabilities"`

	// Secrets configures the encrypted secret store.
	Secrets SecretsConfig `yaml:"secrets"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for Warden data.
	Root string `yaml:"root"`

	// Bin is the durable directory for managed capability binaries.
	// Expected to survive redeploys; prepended to the subprocess PATH.
	Bin string `yaml:"bin"`

	// Scratch is the staging area for in-progress capability installs.
	// Lives on the same filesystem as Bin so the publish rename is
	// atomic.
	Scratch string `yaml:"scratch"`

	// State is where runtime state is stored, including the encrypted
	// secret store and the managed-capability manifest.
	State string `yaml:"state"`
}

// SandboxConfig configures the execution sandbox policy.
type SandboxConfig struct {
	// Mode is "enabled" or "disabled". On hosted deployments a
	// "disabled" value is rejected at every policy resolution, not
	// silently overridden.
	Mode string `yaml:"mode"`

	// WritablePaths are the directories a sandboxed command may write.
	WritablePaths []string `yaml:"writable_paths"`

	// ReadablePaths are additional read-only binds for backends that do
	// not already expose the whole filesystem read-only.
	ReadablePaths []string `yaml:"readable_paths"`

	// AllowPackageManagers disables the package-manager command guard.
	// Ignored (always false) on hosted deployments.
	AllowPackageManagers bool `yaml:"allow_package_managers"`
}

// CapabilityConfig configures the managed-capability system.
type CapabilityConfig struct {
	// CatalogFile is an optional JSONC file of capability specs merged
	// over the compiled-in catalog. Operators use it to override
	// artifact URLs or pin different versions.
	CatalogFile string `yaml:"catalog_file"`

	// ProbeTimeout bounds the version probe run against a binary.
	// Default: 10s.
	ProbeTimeout string `yaml:"probe_timeout"`
}

// SecretsConfig configures the encrypted secret store.
type SecretsConfig struct {
	// StorePath is the encrypted alias table location.
	// Default: ${STATE}/secrets.cbor
	StorePath string `yaml:"store_path"`

	// MasterKeyEnv names the environment variable holding the master
	// key material. Read once at startup and removed from the process
	// environment. Default: WARDEN_MASTER_KEY.
	MasterKeyEnv string `yaml:"master_key_env"`

	// EscrowRecipients are age public keys that secret-store exports
	// are sealed to. Empty disables export.
	EscrowRecipients []string `yaml:"escrow_recipients"`
}

// Default returns the default configuration. These defaults ensure all
// fields have sensible zero-values before the file is loaded; the
// config file is still required for anything beyond local development.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "warden")

	return &Config{
		Deployment: SelfHosted,
		Paths: PathsConfig{
			Root:    defaultRoot,
			Bin:     filepath.Join(defaultRoot, "bin"),
			Scratch: filepath.Join(defaultRoot, "scratch"),
			State:   filepath.Join(defaultRoot, "state"),
		},
		Sandbox: SandboxConfig{
			Mode:          "enabled",
			WritablePaths: []string{},
		},
		Capabilities: CapabilityConfig{
			ProbeTimeout: "10s",
		},
		Secrets: SecretsConfig{
			StorePath:    filepath.Join(defaultRoot, "state", "secrets.cbor"),
			MasterKeyEnv: "WARDEN_MASTER_KEY",
		},
	}
}

// Load loads configuration from the WARDEN_CONFIG environment variable.
// There are no fallbacks: if WARDEN_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("WARDEN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("WARDEN_CONFIG environment variable not set; " +
			"set it to the path of your warden.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"WARDEN_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["WARDEN_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Bin = expandVars(c.Paths.Bin, vars)
	c.Paths.Scratch = expandVars(c.Paths.Scratch, vars)
	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Capabilities.CatalogFile = expandVars(c.Capabilities.CatalogFile, vars)
	c.Secrets.StorePath = expandVars(c.Secrets.StorePath, vars)
	for i := range c.Sandbox.WritablePaths {
		c.Sandbox.WritablePaths[i] = expandVars(c.Sandbox.WritablePaths[i], vars)
	}
	for i := range c.Sandbox.ReadablePaths {
		c.Sandbox.ReadablePaths[i] = expandVars(c.Sandbox.ReadablePaths[i], vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. An explicit request to
// disable the sandbox on a hosted deployment is rejected here: every
// load and reload path goes through Validate, so the rejection reaches
// the caller that supplied the configuration rather than being silently
// overridden.
func (c *Config) Validate() error {
	var errs []error

	if c.Deployment != Hosted && c.Deployment != SelfHosted {
		errs = append(errs, fmt.Errorf("invalid deployment: %q (must be hosted or self-hosted)", c.Deployment))
	}

	if c.Sandbox.Mode != "enabled" && c.Sandbox.Mode != "disabled" {
		errs = append(errs, fmt.Errorf("sandbox.mode must be enabled or disabled, got %q", c.Sandbox.Mode))
	}

	if c.Deployment == Hosted && c.Sandbox.Mode == "disabled" {
		errs = append(errs, fmt.Errorf("sandbox.mode: disabled is not permitted on a hosted deployment"))
	}
	if c.Deployment == Hosted && c.Sandbox.AllowPackageManagers {
		errs = append(errs, fmt.Errorf("sandbox.allow_package_managers: not permitted on a hosted deployment"))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Bin == "" {
		errs = append(errs, fmt.Errorf("paths.bin is required"))
	}

	if c.Secrets.MasterKeyEnv == "" {
		errs = append(errs, fmt.Errorf("secrets.master_key_env is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Bin,
		c.Paths.Scratch,
		c.Paths.State,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
