// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"strings"
	"testing"
)

func TestBuildSeatbeltProfile(t *testing.T) {
	profile := buildSeatbeltProfile([]string{"/work/repo"})

	for _, want := range []string{
		"(version 1)",
		"(deny default)",
		"(allow file-read*)",
		`(allow file-write* (subpath "/work/repo"))`,
		`(allow file-write* (subpath "/tmp"))`,
	} {
		if !strings.Contains(profile, want) {
			t.Errorf("profile missing %q:\n%s", want, profile)
		}
	}
}

func TestSeatbeltWrapArgs(t *testing.T) {
	writable := t.TempDir()
	backend := &seatbeltBackend{execPath: "/usr/bin/sandbox-exec"}

	wrapped, err := backend.Wrap(
		&Policy{Mode: Enabled, WritablePaths: []string{writable}},
		CommandSpec{Program: "make", Args: []string{"test"}},
		[]string{"PATH=/usr/bin"},
	)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	if wrapped.Path != "/usr/bin/sandbox-exec" {
		t.Errorf("path = %q", wrapped.Path)
	}
	if wrapped.Args[0] != "-p" {
		t.Errorf("args = %v, want -p first", wrapped.Args)
	}
	profile := wrapped.Args[1]
	canonical, err := canonicalizePath(writable)
	if err != nil {
		t.Fatalf("canonicalizePath: %v", err)
	}
	if !strings.Contains(profile, sbplQuote(canonical)) {
		t.Errorf("profile missing writable path %s:\n%s", canonical, profile)
	}
	if got := wrapped.Args[len(wrapped.Args)-2:]; got[0] != "make" || got[1] != "test" {
		t.Errorf("command tail = %v", got)
	}
}

func TestSBPLQuote(t *testing.T) {
	if got := sbplQuote(`/path/with"quote`); got != `"/path/with\"quote"` {
		t.Errorf("sbplQuote = %s", got)
	}
}
