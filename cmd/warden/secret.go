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
	"golang.org/x/term"

	"github.com/warden-foundation/warden/lib/sealed"
	"github.com/warden-foundation/warden/lib/secret"
)

func secretCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: warden secret <save|list|delete|keygen|export|import> [flags]")
		return errUsage
	}

	switch args[0] {
	case "keygen":
		return secretKeygenCmd(args[1:])
	case "save":
		return secretSaveCmd(ctx, args[1:], logger)
	case "list":
		return secretListCmd(ctx, args[1:], logger)
	case "delete":
		return secretDeleteCmd(ctx, args[1:], logger)
	case "export":
		return secretExportCmd(ctx, args[1:], logger)
	case "import":
		return secretImportCmd(ctx, args[1:], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown secret subcommand: %s\n", args[0])
		return errUsage
	}
}

func secretSaveCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("secret save", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	fromFile := fs.String("from-file", "", "read the value from a file ('-' for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: warden secret save <alias> [--from-file path]")
		return errUsage
	}
	alias := fs.Arg(0)

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	value, err := readSecretValue(*fromFile)
	if err != nil {
		return err
	}
	defer value.Close()

	if err := app.store.Save(alias, value); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", alias)
	return nil
}

// readSecretValue obtains the secret: from a file, from piped stdin, or
// through a no-echo terminal prompt. The value is never accepted as a
// command-line argument; argv is world-readable while the process runs.
func readSecretValue(fromFile string) (*secret.Buffer, error) {
	if fromFile != "" {
		return secret.ReadFromPath(fromFile)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return secret.ReadFromPath("-")
	}

	fmt.Fprint(os.Stderr, "Value: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading value: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	return secret.NewFromBytes(raw)
}

func secretListCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("secret list", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	infos, err := app.store.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%-24s created %s  updated %s\n",
			info.Alias,
			info.CreatedAt.Format("2006-01-02"),
			info.UpdatedAt.Format("2006-01-02"),
		)
	}
	return nil
}

func secretDeleteCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("secret delete", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: warden secret delete <alias>")
		return errUsage
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}
	if err := app.store.Delete(fs.Arg(0)); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", fs.Arg(0))
	return nil
}

// secretKeygenCmd generates an escrow keypair. The public key goes to
// stdout for the operator to add to escrow_recipients; the identity is
// written to a file, never printed, so it cannot end up in scrollback
// or a shell history capture.
func secretKeygenCmd(args []string) error {
	fs := pflag.NewFlagSet("secret keygen", pflag.ContinueOnError)
	identityFile := fs.String("identity-file", "", "write the age identity to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *identityFile == "" {
		fmt.Fprintln(os.Stderr, "usage: warden secret keygen --identity-file <path>")
		return errUsage
	}
	if _, err := os.Stat(*identityFile); err == nil {
		return fmt.Errorf("refusing to overwrite existing identity file %s", *identityFile)
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()

	if err := os.WriteFile(*identityFile, []byte(keypair.PrivateKey.Expose()+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}

	fmt.Printf("public key: %s\n", keypair.PublicKey)
	fmt.Printf("identity written to %s\n", *identityFile)
	fmt.Println("add the public key to secrets.escrow_recipients to include it in exports")
	return nil
}

func secretExportCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("secret export", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	output := fs.String("output", "", "write the sealed bundle to a file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	ciphertext, err := app.store.Export(app.cfg.Secrets.EscrowRecipients)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(ciphertext+"\n"), 0o600)
	}
	fmt.Println(ciphertext)
	return nil
}

func secretImportCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := pflag.NewFlagSet("secret import", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to warden.yaml")
	identityFile := fs.String("identity-file", "", "file holding the age identity ('-' for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *identityFile == "" {
		fmt.Fprintln(os.Stderr, "usage: warden secret import <bundle-file> --identity-file <path>")
		return errUsage
	}

	app, err := newApp(ctx, *configPath, logger)
	if err != nil {
		return err
	}

	bundle, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	identity, err := secret.ReadFromPath(*identityFile)
	if err != nil {
		return err
	}
	defer identity.Close()

	imported, err := app.store.Import(strings.TrimSpace(string(bundle)), identity)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d secrets\n", imported)
	return nil
}
