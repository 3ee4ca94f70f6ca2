// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/warden-foundation/warden/lib/codec"
	"github.com/warden-foundation/warden/lib/secret"
)

// ErrNotFound means no record exists for the alias.
var ErrNotFound = errors.New("secret not found")

// aliasPattern constrains aliases to names that survive conversion to
// environment variable names without collisions or shell surprises.
var aliasPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// record is one encrypted secret as stored on disk. The plaintext is
// recoverable only with the derived key and the exact alias (bound as
// AEAD associated data).
type record struct {
	Alias      string    `cbor:"alias"`
	Ciphertext []byte    `cbor:"ciphertext"`
	Nonce      []byte    `cbor:"nonce"`
	CreatedAt  time.Time `cbor:"created_at"`
	UpdatedAt  time.Time `cbor:"updated_at"`
}

// storeTable is the on-disk CBOR document.
type storeTable struct {
	Records map[string]record `cbor:"records"`
}

// Info is the listable view of a record. It carries everything except
// anything derived from the value.
type Info struct {
	Alias     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the encrypted alias table. A Store with a nil cipher is
// disabled: List and Delete still work on the table, but Save, Inject,
// and escrow operations fail with ErrSecretUnavailable.
type Store struct {
	path   string
	cipher *Cipher
	logger *slog.Logger

	mu sync.Mutex
}

// NewStore opens the store at path. cipher may be nil for a disabled
// store.
func NewStore(path string, cipher *Cipher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, cipher: cipher, logger: logger}
}

// Enabled reports whether a master key was available.
func (s *Store) Enabled() bool {
	return s.cipher != nil
}

// Save encrypts value under alias and persists it, replacing any
// existing record. The value buffer is borrowed, not closed.
func (s *Store) Save(alias string, value *secret.Buffer) error {
	if s.cipher == nil {
		return ErrSecretUnavailable
	}
	if !aliasPattern.MatchString(alias) {
		return fmt.Errorf("invalid alias %q: need lowercase letters, digits, '-', '_', max 64 chars", alias)
	}
	if value.Len() == 0 {
		return fmt.Errorf("secret value is empty")
	}

	ciphertext, nonce, err := s.cipher.Encrypt(alias, value.Bytes())
	if err != nil {
		return fmt.Errorf("encrypting %q: %w", alias, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := record{Alias: alias, Ciphertext: ciphertext, Nonce: nonce, CreatedAt: now, UpdatedAt: now}
	if previous, exists := table.Records[alias]; exists {
		entry.CreatedAt = previous.CreatedAt
	}
	table.Records[alias] = entry

	if err := s.save(table); err != nil {
		return err
	}
	s.logger.Info("secret saved", "alias", alias)
	return nil
}

// List returns the alias metadata, sorted by alias. No decryption
// happens; List works on a disabled store.
func (s *Store) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(table.Records))
	for _, entry := range table.Records {
		infos = append(infos, Info{
			Alias:     entry.Alias,
			CreatedAt: entry.CreatedAt,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Alias < infos[j].Alias })
	return infos, nil
}

// Delete removes the record for alias.
func (s *Store) Delete(alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := table.Records[alias]; !exists {
		return fmt.Errorf("%w: %q", ErrNotFound, alias)
	}
	delete(table.Records, alias)

	if err := s.save(table); err != nil {
		return err
	}
	s.logger.Info("secret deleted", "alias", alias)
	return nil
}

// open decrypts one record into an mmap-backed buffer. Unexported: the
// only callers are injection and escrow export, both of which keep the
// plaintext off every externally readable surface.
func (s *Store) open(alias string) (*secret.Buffer, error) {
	if s.cipher == nil {
		return nil, ErrSecretUnavailable
	}

	s.mu.Lock()
	table, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entry, exists := table.Records[alias]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, alias)
	}
	return s.cipher.Decrypt(alias, entry.Ciphertext, entry.Nonce)
}

// load reads the table from disk. Missing file means empty table.
// Callers hold s.mu.
func (s *Store) load() (*storeTable, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &storeTable{Records: make(map[string]record)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secret store %s: %w", s.path, err)
	}

	var table storeTable
	if err := codec.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decoding secret store %s: %w", s.path, err)
	}
	if table.Records == nil {
		table.Records = make(map[string]record)
	}
	return &table, nil
}

// save writes the table atomically with owner-only permissions.
// Callers hold s.mu.
func (s *Store) save(table *storeTable) error {
	data, err := codec.Marshal(table)
	if err != nil {
		return fmt.Errorf("encoding secret store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".secrets-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing secret store: %w", err)
	}
	return nil
}
