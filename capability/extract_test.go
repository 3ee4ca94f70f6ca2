// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func writeTarGz(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write(content); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	path := filepath.Join(t.TempDir(), "artifact.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func TestExtractTarGz(t *testing.T) {
	archive := writeTarGz(t, map[string][]byte{
		"tool-1.0/README.md": []byte("docs"),
		"tool-1.0/tool":      []byte("#!/bin/sh\necho tool\n"),
	})
	dest := filepath.Join(t.TempDir(), "tool")

	artifact := Artifact{Extract: ExtractTarGz, InnerPath: "tool-1.0/tool"}
	if err := extractBinary(artifact, archive, dest); err != nil {
		t.Fatalf("extractBinary: %v", err)
	}

	content, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading extracted binary: %v", err)
	}
	if string(content) != "#!/bin/sh\necho tool\n" {
		t.Errorf("extracted content = %q", content)
	}
}

func TestExtractTarGzBasenameMatch(t *testing.T) {
	archive := writeTarGz(t, map[string][]byte{
		"tool-1.0-x86_64/tool": []byte("binary"),
	})
	dest := filepath.Join(t.TempDir(), "tool")

	// Bare inner path matches on basename, so specs need not spell out
	// the versioned directory.
	artifact := Artifact{Extract: ExtractTarGz, InnerPath: "tool"}
	if err := extractBinary(artifact, archive, dest); err != nil {
		t.Fatalf("extractBinary: %v", err)
	}
}

func TestExtractTarGzMissingEntry(t *testing.T) {
	archive := writeTarGz(t, map[string][]byte{"other": []byte("x")})
	dest := filepath.Join(t.TempDir(), "tool")

	artifact := Artifact{Extract: ExtractTarGz, InnerPath: "tool"}
	if err := extractBinary(artifact, archive, dest); err == nil {
		t.Error("extraction succeeded with missing entry")
	}
}

func TestExtractTarZst(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	content := []byte("zstd binary")
	if err := tw.WriteHeader(&tar.Header{
		Name: "tool", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content)),
	}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write(tarBuf.Bytes()); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "artifact.tar.zst")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "tool")
	artifact := Artifact{Extract: ExtractTarZst, InnerPath: "tool"}
	if err := extractBinary(artifact, archive, dest); err != nil {
		t.Fatalf("extractBinary: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "zstd binary" {
		t.Errorf("extracted content = %q, err = %v", got, err)
	}
}

func TestExtractZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("dir/tool")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := entry.Write([]byte("zip binary")); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "artifact.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "tool")
	artifact := Artifact{Extract: ExtractZip, InnerPath: "tool"}
	if err := extractBinary(artifact, archive, dest); err != nil {
		t.Fatalf("extractBinary: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "zip binary" {
		t.Errorf("extracted content = %q, err = %v", got, err)
	}
}

func TestExtractNoneCopies(t *testing.T) {
	src := filepath.Join(t.TempDir(), "raw")
	if err := os.WriteFile(src, []byte("raw binary"), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "tool")

	if err := extractBinary(Artifact{Extract: ExtractNone}, src, dest); err != nil {
		t.Fatalf("extractBinary: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "raw binary" {
		t.Errorf("copied content = %q, err = %v", got, err)
	}
}

func TestExtractUnknownMethod(t *testing.T) {
	if err := extractBinary(Artifact{Extract: "rar"}, "in", "out"); err == nil {
		t.Error("unknown method accepted")
	}
}
