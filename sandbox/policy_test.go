// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"sync"
	"testing"
)

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("enabled")
	if err != nil || mode != Enabled {
		t.Errorf("ParseMode(enabled) = %v, %v", mode, err)
	}
	mode, err = ParseMode("disabled")
	if err != nil || mode != Disabled {
		t.Errorf("ParseMode(disabled) = %v, %v", mode, err)
	}
	if _, err := ParseMode("strict"); err == nil {
		t.Error("ParseMode(strict) should fail")
	}
}

func TestHolderReplaceAndLoad(t *testing.T) {
	holder, err := NewHolder(false, Policy{Mode: Disabled})
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}

	if got := holder.Load().Mode; got != Disabled {
		t.Errorf("initial mode = %v, want Disabled", got)
	}

	err = holder.Replace(Policy{Mode: Enabled, WritablePaths: []string{"/work"}})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	policy := holder.Load()
	if policy.Mode != Enabled {
		t.Errorf("mode after replace = %v, want Enabled", policy.Mode)
	}
	if len(policy.WritablePaths) != 1 || policy.WritablePaths[0] != "/work" {
		t.Errorf("writable paths = %v", policy.WritablePaths)
	}
}

func TestHolderClonesSlices(t *testing.T) {
	paths := []string{"/work"}
	holder, err := NewHolder(false, Policy{Mode: Enabled, WritablePaths: paths})
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}

	paths[0] = "/mutated"
	if got := holder.Load().WritablePaths[0]; got != "/work" {
		t.Errorf("snapshot aliases caller slice: got %q", got)
	}
}

func TestHostedRejectsDisabledAtConstruction(t *testing.T) {
	if _, err := NewHolder(true, Policy{Mode: Disabled}); err == nil {
		t.Error("hosted holder accepted Disabled initial policy")
	}
}

func TestHostedRejectsViolatingReplace(t *testing.T) {
	holder, err := NewHolder(true, Policy{Mode: Enabled})
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}

	if err := holder.Replace(Policy{Mode: Disabled}); err == nil {
		t.Error("hosted holder accepted Disabled replacement")
	}
	if err := holder.Replace(Policy{Mode: Enabled, AllowPackageManagers: true}); err == nil {
		t.Error("hosted holder accepted package-manager opt-out")
	}

	// The previous snapshot stays in effect after a rejected replace.
	policy := holder.Load()
	if policy.Mode != Enabled || policy.AllowPackageManagers {
		t.Errorf("policy after rejected replaces = %+v", policy)
	}
}

func TestHostedClampAtLoad(t *testing.T) {
	holder := &Holder{hosted: true}
	// Store a violating snapshot directly, bypassing Replace validation.
	holder.current.Store(&Policy{Mode: Disabled, AllowPackageManagers: true})

	policy := holder.Load()
	if policy.Mode != Enabled {
		t.Errorf("clamped mode = %v, want Enabled", policy.Mode)
	}
	if policy.AllowPackageManagers {
		t.Error("clamp left AllowPackageManagers set")
	}
}

func TestConcurrentReplaceYieldsWholeSnapshots(t *testing.T) {
	holder, err := NewHolder(false, Policy{Mode: Enabled, WritablePaths: []string{"/a", "/a"}})
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}

	// Each replacement writes a self-consistent policy: every path in a
	// snapshot is the same string. A torn read would mix them.
	policies := []Policy{
		{Mode: Enabled, WritablePaths: []string{"/a", "/a"}},
		{Mode: Enabled, WritablePaths: []string{"/b", "/b"}},
	}

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := holder.Replace(policies[i%2]); err != nil {
				t.Errorf("Replace: %v", err)
				return
			}
		}
	}()

	var readers sync.WaitGroup
	for reader := 0; reader < 4; reader++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 10000; i++ {
				policy := holder.Load()
				if policy.WritablePaths[0] != policy.WritablePaths[1] {
					t.Errorf("torn snapshot: %v", policy.WritablePaths)
					return
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	<-writerDone
}
