// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// warden is the trust boundary between a coding agent and its host:
// sandboxed command execution, managed tool installs, and an encrypted
// secret store with injection-only access.
//
// Usage:
//
//	warden run [flags] -- <command> [args...]
//	warden status [flags]
//	warden capability list|install <name>
//	warden secret save|list|delete|keygen|export|import ...
//	warden sandbox test
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/warden-foundation/warden/lib/version"
	"github.com/warden-foundation/warden/sandbox"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("WARDEN_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runCmd(ctx, args, logger)
	case "status":
		err = statusCmd(ctx, args, logger)
	case "capability":
		err = capabilityCmd(ctx, args, logger)
	case "secret":
		err = secretCmd(ctx, args, logger)
	case "sandbox":
		err = sandboxCmd(ctx, args, logger)
	case "version", "--version", "-v":
		fmt.Printf("warden %s\n", version.Info())
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if code, ok := sandbox.IsExitError(err); ok {
			os.Exit(code)
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// errUsage marks argument errors whose message was already printed.
var errUsage = errors.New("usage error")

func printUsage() {
	fmt.Print(`warden - agent host trust boundary

USAGE
    warden <command> [flags] [-- <args>...]

COMMANDS
    run           Run a command through the sandbox
    status        Show deployment, policy, backend, and store status
    capability    Manage pinned tool installs (list, install)
    secret        Manage the encrypted secret store
                  (save, list, delete, keygen, export, import)
    sandbox       Sandbox operations (test: run escape probes)
    version       Show version

EXAMPLES
    # Run a build inside the sandbox
    warden run --dir /work/repo -- make test

    # Run with a secret injected into the child environment
    warden run --inject github-token -- gh pr list

    # Install a pinned tool into the managed directory
    warden capability install rg

    # Save a secret (prompts without echo)
    warden secret save github-token

    # Verify containment on this host
    warden sandbox test

ENVIRONMENT
    WARDEN_CONFIG      Path to warden.yaml (defaults apply when unset)
    WARDEN_MASTER_KEY  Secret store master key, consumed at startup
    WARDEN_DEBUG       Enable debug logging
`)
}
