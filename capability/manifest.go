// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/warden-foundation/warden/lib/codec"
)

// ManifestEntry records one managed binary: what was installed, from
// which pinned spec, and the BLAKE3 digest of the published file. The
// startup probe re-hashes the file against Digest, so corruption of the
// durable directory is detected without re-downloading anything.
type ManifestEntry struct {
	Name        string    `cbor:"name"`
	Version     string    `cbor:"version"`
	Digest      string    `cbor:"digest"`
	ArtifactURL string    `cbor:"artifact_url"`
	InstalledAt time.Time `cbor:"installed_at"`
}

// Manifest is the on-disk record of every managed binary.
type Manifest struct {
	Entries map[string]ManifestEntry `cbor:"entries"`
}

// loadManifest reads the manifest file. A missing file is an empty
// manifest, not an error: first run, or a wiped state directory.
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{Entries: make(map[string]ManifestEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if manifest.Entries == nil {
		manifest.Entries = make(map[string]ManifestEntry)
	}
	return &manifest, nil
}

// saveManifest writes the manifest atomically: encode, write to a temp
// file in the same directory, rename over the target.
func saveManifest(path string, manifest *Manifest) error {
	data, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing manifest: %w", err)
	}
	return nil
}
