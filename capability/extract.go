// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// maxBinarySize bounds how much an archive entry may expand to. Archive
// contents come from a checksum-verified artifact, but the pin protects
// provenance, not sanity; a runaway entry should fail, not fill the
// disk.
const maxBinarySize = 2 << 30 // 2 GiB

// extractBinary produces the capability binary at destPath from the
// downloaded artifact. Only the single named inner file is extracted;
// everything else in an archive is ignored.
func extractBinary(artifact Artifact, archivePath, destPath string) error {
	switch artifact.Extract {
	case ExtractNone, "":
		return copyFile(archivePath, destPath)
	case ExtractTarGz:
		return extractTar(archivePath, destPath, artifact.InnerPath, newGzipReader)
	case ExtractTarZst:
		return extractTar(archivePath, destPath, artifact.InnerPath, newZstdReader)
	case ExtractZip:
		return extractZip(archivePath, destPath, artifact.InnerPath)
	default:
		return fmt.Errorf("unknown extract method %q", artifact.Extract)
	}
}

func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// extractTar scans a compressed tarball for innerPath and writes that
// entry to destPath. Entries are matched on the exact archive path and,
// as a convenience for archives with a single top-level directory, on
// the basename when innerPath has no directory component.
func extractTar(archivePath, destPath, innerPath string, decompress func(io.Reader) (io.ReadCloser, error)) error {
	if innerPath == "" {
		return fmt.Errorf("archive extraction requires inner_path")
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	reader, err := decompress(archive)
	if err != nil {
		return fmt.Errorf("opening compressed stream: %w", err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if !entryMatches(header.Name, innerPath) {
			continue
		}
		return writeBinary(destPath, tr)
	}
	return fmt.Errorf("archive does not contain %q", innerPath)
}

// extractZip scans a zip archive for innerPath.
func extractZip(archivePath, destPath, innerPath string) error {
	if innerPath == "" {
		return fmt.Errorf("archive extraction requires inner_path")
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if !entryMatches(file.Name, innerPath) {
			continue
		}
		content, err := file.Open()
		if err != nil {
			return err
		}
		defer content.Close()
		return writeBinary(destPath, content)
	}
	return fmt.Errorf("archive does not contain %q", innerPath)
}

// entryMatches compares an archive entry name against the wanted inner
// path. A bare inner path (no slash) also matches on basename, so specs
// do not have to spell out versioned top-level directories.
func entryMatches(entryName, innerPath string) bool {
	if entryName == innerPath {
		return true
	}
	return !hasDir(innerPath) && path.Base(entryName) == innerPath
}

func hasDir(p string) bool {
	return path.Dir(p) != "."
}

// writeBinary writes the extracted stream to destPath with a size
// bound.
func writeBinary(destPath string, content io.Reader) error {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	written, err := io.Copy(out, io.LimitReader(content, maxBinarySize+1))
	if err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("writing binary: %w", err)
	}
	if written > maxBinarySize {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("archive entry exceeds %d bytes", int64(maxBinarySize))
	}
	return out.Close()
}

// copyFile copies src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
