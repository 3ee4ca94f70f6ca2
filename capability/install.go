// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/warden-foundation/warden/lib/binhash"
)

// runInstall executes the install pipeline for one spec:
//
//	download -> verify SHA-256 -> extract -> chmod -> probe -> publish
//
// Everything up to publish happens in the scratch directory, including
// the version probe; the durable bin directory is touched only by the
// final rename. A failure at any step leaves a previously published
// binary exactly as it was.
func (m *Manager) runInstall(ctx context.Context, spec Spec) (ManifestEntry, error) {
	artifact, err := spec.ArtifactFor()
	if err != nil {
		return ManifestEntry{}, err
	}

	downloadPath, err := m.download(ctx, artifact.URL)
	if err != nil {
		return ManifestEntry{}, err
	}
	defer os.Remove(downloadPath)

	if err := verifyChecksum(downloadPath, artifact.SHA256); err != nil {
		return ManifestEntry{}, err
	}

	extractedPath := filepath.Join(m.scratchDir, fmt.Sprintf(".%s-staged-%d", spec.Name, time.Now().UnixNano()))
	defer os.Remove(extractedPath)
	if err := extractBinary(artifact, downloadPath, extractedPath); err != nil {
		return ManifestEntry{}, fmt.Errorf("extracting %s: %w", spec.Name, err)
	}

	if err := os.Chmod(extractedPath, 0o755); err != nil {
		return ManifestEntry{}, err
	}

	version, err := m.probeStaged(ctx, extractedPath, spec)
	if err != nil {
		return ManifestEntry{}, err
	}

	digest, err := binhash.BLAKE3File(extractedPath)
	if err != nil {
		return ManifestEntry{}, err
	}

	publishedPath := filepath.Join(m.binDir, spec.Name)
	if err := os.Rename(extractedPath, publishedPath); err != nil {
		return ManifestEntry{}, fmt.Errorf("publishing %s: %w", spec.Name, err)
	}

	return ManifestEntry{
		Name:        spec.Name,
		Version:     version,
		Digest:      binhash.FormatDigest(digest),
		ArtifactURL: artifact.URL,
		InstalledAt: time.Now().UTC(),
	}, nil
}

// probeStaged runs the version probe against the staged binary before
// it is published. A binary that cannot execute must not replace a
// previously published one, so any probe failure aborts the install.
// An empty first output line falls back to the pinned version.
func (m *Manager) probeStaged(ctx context.Context, binaryPath string, spec Spec) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, binaryPath, spec.ProbeArgs()...).Output()
	if err != nil {
		return "", fmt.Errorf("version probe of staged %s: %w", spec.Name, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	version := strings.TrimSpace(line)
	if version == "" {
		version = spec.Version
	}
	return version, nil
}

// download fetches the artifact into a scratch temp file and returns
// its path.
func (m *Manager) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(m.scratchDir, ".download-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// verifyChecksum compares the downloaded artifact against the pinned
// SHA-256. A mismatch is a hard failure: the artifact is not what the
// spec pinned, whatever the reason.
func verifyChecksum(path, pinned string) error {
	want, err := binhash.ParseDigest(strings.ToLower(pinned))
	if err != nil {
		return fmt.Errorf("invalid pinned checksum: %w", err)
	}
	got, err := binhash.SHA256File(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("checksum mismatch: artifact sha256 %s, spec pins %s",
			binhash.FormatDigest(got), pinned)
	}
	return nil
}
