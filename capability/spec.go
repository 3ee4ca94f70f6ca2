// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"runtime"
)

// ExtractMethod names how a downloaded artifact yields the binary.
type ExtractMethod string

const (
	// ExtractNone means the artifact is the binary itself.
	ExtractNone ExtractMethod = "none"

	// ExtractTarGz unpacks a gzip-compressed tarball.
	ExtractTarGz ExtractMethod = "tar.gz"

	// ExtractTarZst unpacks a zstd-compressed tarball.
	ExtractTarZst ExtractMethod = "tar.zst"

	// ExtractZip unpacks a zip archive.
	ExtractZip ExtractMethod = "zip"
)

// Artifact is one platform's download: where to fetch it, the pinned
// checksum it must match, and how to get the binary out of it.
type Artifact struct {
	// URL is the exact artifact location.
	URL string `json:"url"`

	// SHA256 is the pinned hex digest of the artifact as downloaded.
	// Verification failure aborts the install before extraction.
	SHA256 string `json:"sha256"`

	// Extract names the unpacking method.
	Extract ExtractMethod `json:"extract"`

	// InnerPath locates the binary inside an archive. Ignored for
	// ExtractNone.
	InnerPath string `json:"inner_path,omitempty"`
}

// Spec is one installable capability: a name, a pinned version, and the
// per-platform artifacts.
type Spec struct {
	// Name is the capability identifier and the published binary name.
	Name string `json:"name"`

	// Version is the pinned version this spec installs.
	Version string `json:"version"`

	// Probe is the argument list appended to the binary to read its
	// version. Defaults to ["--version"].
	Probe []string `json:"probe,omitempty"`

	// Artifacts maps "os/arch" platform keys to downloads.
	Artifacts map[string]Artifact `json:"artifacts"`
}

// ArtifactFor returns the artifact for the current platform.
func (s *Spec) ArtifactFor() (Artifact, error) {
	key := platformKey()
	artifact, ok := s.Artifacts[key]
	if !ok {
		return Artifact{}, fmt.Errorf("capability %q has no artifact for %s", s.Name, key)
	}
	return artifact, nil
}

// ProbeArgs returns the version-probe arguments.
func (s *Spec) ProbeArgs() []string {
	if len(s.Probe) == 0 {
		return []string{"--version"}
	}
	return s.Probe
}

func platformKey() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// builtinSpecs is the compiled-in catalog. Versions and checksums are
// pinned; operators override or extend them through the JSONC catalog
// file, which merges over this set by name.
func builtinSpecs() []Spec {
	return []Spec{
		{
			Name:    "rg",
			Version: "14.1.1",
			Artifacts: map[string]Artifact{
				"linux/amd64": {
					URL:       "https://github.com/BurntSushi/ripgrep/releases/download/14.1.1/ripgrep-14.1.1-x86_64-unknown-linux-musl.tar.gz",
					SHA256:    "4cf9f2741e6c465ffdb7c26f38056a59e2a2544b51f7cc128ef28337eeae4d8e",
					Extract:   ExtractTarGz,
					InnerPath: "ripgrep-14.1.1-x86_64-unknown-linux-musl/rg",
				},
				"darwin/arm64": {
					URL:       "https://github.com/BurntSushi/ripgrep/releases/download/14.1.1/ripgrep-14.1.1-aarch64-apple-darwin.tar.gz",
					SHA256:    "9e2a3d0fdb51e1bd497e1b53d1e9e1fdbeec0e237046c50a04b231f324b9cf6e",
					Extract:   ExtractTarGz,
					InnerPath: "ripgrep-14.1.1-aarch64-apple-darwin/rg",
				},
			},
		},
		{
			Name:    "jq",
			Version: "1.7.1",
			Artifacts: map[string]Artifact{
				"linux/amd64": {
					URL:     "https://github.com/jqlang/jq/releases/download/jq-1.7.1/jq-linux-amd64",
					SHA256:  "5942c9b0934e510ee61eb3e30273f1b3fe2590df93933a93d7c58b81d19c8ff5",
					Extract: ExtractNone,
				},
				"darwin/arm64": {
					URL:     "https://github.com/jqlang/jq/releases/download/jq-1.7.1/jq-macos-arm64",
					SHA256:  "0bbe619e663e0de2c550be2fe0d240d076799d6f8a652b70fa04aea8a8362e8a",
					Extract: ExtractNone,
				},
			},
		},
		{
			Name:    "fzf",
			Version: "0.55.0",
			Probe:   []string{"--version"},
			Artifacts: map[string]Artifact{
				"linux/amd64": {
					URL:       "https://github.com/junegunn/fzf/releases/download/v0.55.0/fzf-0.55.0-linux_amd64.tar.gz",
					SHA256:    "805383f71bf7f8b4ea38f9a0721182b8669d406d4a65c2626012b542d9d15403",
					Extract:   ExtractTarGz,
					InnerPath: "fzf",
				},
				"darwin/arm64": {
					URL:       "https://github.com/junegunn/fzf/releases/download/v0.55.0/fzf-0.55.0-darwin_arm64.zip",
					SHA256:    "e89a2e7061a046121e306ff7a744a9d4b53cf8e6340eb37e3f9ca8b0e4e0b6e7",
					Extract:   ExtractZip,
					InnerPath: "fzf",
				},
			},
		},
	}
}
