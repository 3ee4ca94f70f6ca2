// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/warden-foundation/warden/lib/binhash"
)

// ErrInstallConflict means an install for the same capability is
// already running. Callers get the conflict immediately; requests are
// never queued behind a running install.
var ErrInstallConflict = errors.New("install already in progress")

// ErrNotFound means the capability name is not in the catalog.
var ErrNotFound = errors.New("capability not found")

// State is the lifecycle position of one capability.
type State string

const (
	// StateInstallable means the capability is in the catalog but no
	// binary was found; an install can make it available.
	StateInstallable State = "installable"

	// StateAvailable means a usable binary exists.
	StateAvailable State = "available"

	// StateInstalling means an install pipeline is currently running.
	StateInstalling State = "installing"

	// StateError means the last install or probe failed; Message says
	// why.
	StateError State = "error"
)

// Source says where an available binary came from.
type Source string

const (
	// SourceManaged is a binary in the durable managed directory.
	SourceManaged Source = "managed"

	// SourceSystem is a binary found on the system PATH.
	SourceSystem Source = "system"
)

// Record is the full status of one capability. Records are immutable
// snapshots; the manager replaces the whole table on every change.
type Record struct {
	Name    string
	State   State
	Version string
	Source  Source
	Path    string

	// Message carries the failure reason when State is StateError.
	Message string
}

type statusTable map[string]Record

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Registry is the merged capability catalog.
	Registry *Registry

	// BinDir is the durable directory published binaries live in.
	BinDir string

	// ScratchDir stages downloads and extraction. Must be on the same
	// filesystem as BinDir so the publish rename is atomic.
	ScratchDir string

	// ManifestPath is the CBOR manifest location.
	ManifestPath string

	// ProbeTimeout bounds a version probe. Default 10s.
	ProbeTimeout time.Duration

	// Client performs artifact downloads. Default http.DefaultClient.
	Client *http.Client

	// Logger for install and probe events.
	Logger *slog.Logger
}

// Manager owns the managed-capability lifecycle: startup probing,
// installs, and the cached status snapshot. Status reads never block on
// an install; they load the current snapshot from an atomic pointer.
type Manager struct {
	registry     *Registry
	binDir       string
	scratchDir   string
	manifestPath string
	probeTimeout time.Duration
	client       *http.Client
	logger       *slog.Logger

	snapshot atomic.Pointer[statusTable]

	// mu serializes snapshot replacement and manifest writes.
	mu sync.Mutex

	// installLocks holds one mutex per capability name; TryLock gives
	// the fail-fast conflict semantics.
	installLocks sync.Map
}

// NewManager builds a manager and runs the startup probe: every catalog
// entry is resolved to managed (manifest digest verified), system PATH,
// or installable. The probe runs before the first status read, so the
// snapshot is never empty while the catalog is not.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("capability manager needs a registry")
	}
	if cfg.BinDir == "" || cfg.ScratchDir == "" || cfg.ManifestPath == "" {
		return nil, fmt.Errorf("capability manager needs bin, scratch, and manifest paths")
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		registry:     cfg.Registry,
		binDir:       cfg.BinDir,
		scratchDir:   cfg.ScratchDir,
		manifestPath: cfg.ManifestPath,
		probeTimeout: cfg.ProbeTimeout,
		client:       cfg.Client,
		logger:       cfg.Logger,
	}

	empty := make(statusTable)
	m.snapshot.Store(&empty)

	if err := m.probeAll(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// BinDir returns the managed binary directory (the one prepended to
// sandboxed PATHs).
func (m *Manager) BinDir() string {
	return m.binDir
}

// Status returns the full records for every catalog entry, sorted by
// name. The returned slice is a copy of the current snapshot.
func (m *Manager) Status() []Record {
	table := *m.snapshot.Load()
	records := make([]Record, 0, len(table))
	for _, record := range table {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// Available returns only the names of usable capabilities. This is the
// cheap summary handed to an agent's context; full records stay behind
// Status.
func (m *Manager) Available() []string {
	var names []string
	for _, record := range m.Status() {
		if record.State == StateAvailable {
			names = append(names, record.Name)
		}
	}
	return names
}

// Lookup returns the record for one capability.
func (m *Manager) Lookup(name string) (Record, error) {
	table := *m.snapshot.Load()
	record, ok := table[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return record, nil
}

// Install runs the full pipeline for name synchronously. A concurrent
// install of the same name fails immediately with ErrInstallConflict;
// different names install in parallel.
func (m *Manager) Install(ctx context.Context, name string) error {
	spec, ok := m.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	lock := m.lockFor(name)
	if !lock.TryLock() {
		return fmt.Errorf("%w: %q", ErrInstallConflict, name)
	}
	defer lock.Unlock()

	m.setRecord(Record{Name: name, State: StateInstalling, Version: spec.Version})
	m.logger.Info("capability install started", "name", name, "version", spec.Version)

	entry, err := m.runInstall(ctx, spec)
	if err != nil {
		m.setRecord(Record{Name: name, State: StateError, Message: err.Error()})
		m.logger.Error("capability install failed", "name", name, "error", err)
		return fmt.Errorf("installing %q: %w", name, err)
	}

	if err := m.recordManifest(entry); err != nil {
		m.setRecord(Record{Name: name, State: StateError, Message: err.Error()})
		return fmt.Errorf("installing %q: %w", name, err)
	}

	m.setRecord(Record{
		Name:    name,
		State:   StateAvailable,
		Version: entry.Version,
		Source:  SourceManaged,
		Path:    filepath.Join(m.binDir, name),
	})
	m.logger.Info("capability installed", "name", name, "version", entry.Version)
	return nil
}

// StartInstall begins an install in the background. The conflict check
// happens synchronously, so a duplicate request still fails fast; the
// returned channel delivers the final result.
func (m *Manager) StartInstall(ctx context.Context, name string) (<-chan error, error) {
	spec, ok := m.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	lock := m.lockFor(name)
	if !lock.TryLock() {
		return nil, fmt.Errorf("%w: %q", ErrInstallConflict, name)
	}

	m.setRecord(Record{Name: name, State: StateInstalling, Version: spec.Version})
	m.logger.Info("capability install started", "name", name, "version", spec.Version)

	done := make(chan error, 1)
	go func() {
		defer lock.Unlock()

		entry, err := m.runInstall(ctx, spec)
		if err == nil {
			err = m.recordManifest(entry)
		}
		if err != nil {
			m.setRecord(Record{Name: name, State: StateError, Message: err.Error()})
			m.logger.Error("capability install failed", "name", name, "error", err)
			done <- fmt.Errorf("installing %q: %w", name, err)
			return
		}

		m.setRecord(Record{
			Name:    name,
			State:   StateAvailable,
			Version: entry.Version,
			Source:  SourceManaged,
			Path:    filepath.Join(m.binDir, name),
		})
		m.logger.Info("capability installed", "name", name, "version", entry.Version)
		done <- nil
	}()
	return done, nil
}

func (m *Manager) lockFor(name string) *sync.Mutex {
	lock, _ := m.installLocks.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// setRecord replaces the status snapshot with a copy containing the
// updated record. Readers holding the old pointer keep a consistent
// view.
func (m *Manager) setRecord(record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := *m.snapshot.Load()
	next := make(statusTable, len(old)+1)
	for name, r := range old {
		next[name] = r
	}
	next[record.Name] = record
	m.snapshot.Store(&next)
}

// recordManifest persists one entry into the on-disk manifest.
func (m *Manager) recordManifest(entry ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifest, err := loadManifest(m.manifestPath)
	if err != nil {
		return err
	}
	manifest.Entries[entry.Name] = entry
	return saveManifest(m.manifestPath, manifest)
}

// probeAll resolves every catalog entry at startup. Managed binaries
// win over system ones; a managed binary whose BLAKE3 digest no longer
// matches its manifest entry is reported as an error, not silently
// used.
func (m *Manager) probeAll(ctx context.Context) error {
	manifest, err := loadManifest(m.manifestPath)
	if err != nil {
		return err
	}

	table := make(statusTable)
	for _, name := range m.registry.Names() {
		table[name] = m.probeOne(ctx, name, manifest)
	}

	m.mu.Lock()
	m.snapshot.Store(&table)
	m.mu.Unlock()
	return nil
}

func (m *Manager) probeOne(ctx context.Context, name string, manifest *Manifest) Record {
	managedPath := filepath.Join(m.binDir, name)
	if _, err := os.Stat(managedPath); err == nil {
		entry, known := manifest.Entries[name]
		if !known {
			return Record{
				Name:    name,
				State:   StateError,
				Path:    managedPath,
				Message: "managed binary has no manifest entry; reinstall",
			}
		}
		digest, err := binhash.BLAKE3File(managedPath)
		if err != nil {
			return Record{Name: name, State: StateError, Path: managedPath, Message: err.Error()}
		}
		if binhash.FormatDigest(digest) != entry.Digest {
			return Record{
				Name:    name,
				State:   StateError,
				Path:    managedPath,
				Message: "managed binary does not match manifest digest; reinstall",
			}
		}
		return Record{
			Name:    name,
			State:   StateAvailable,
			Version: entry.Version,
			Source:  SourceManaged,
			Path:    managedPath,
		}
	}

	// Fall back to the system PATH, skipping hits inside the managed
	// directory (already handled above).
	if systemPath, err := exec.LookPath(name); err == nil {
		if filepath.Dir(systemPath) != filepath.Clean(m.binDir) {
			version := m.probeVersion(ctx, systemPath, name)
			return Record{
				Name:    name,
				State:   StateAvailable,
				Version: version,
				Source:  SourceSystem,
				Path:    systemPath,
			}
		}
	}

	return Record{Name: name, State: StateInstallable}
}

// probeVersion runs the binary's version probe and returns the first
// output line. Empty on any failure: a probe failure downgrades the
// version string, never the availability of the binary.
func (m *Manager) probeVersion(ctx context.Context, binaryPath, name string) string {
	spec, ok := m.registry.Lookup(name)
	args := []string{"--version"}
	if ok {
		args = spec.ProbeArgs()
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, binaryPath, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
