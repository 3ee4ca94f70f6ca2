// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"
)

// Registry is the merged capability catalog: compiled-in specs with the
// operator catalog file layered over them by name. It is built once at
// startup and read-only afterward.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a registry from the compiled-in catalog, then
// merges the operator catalog file if catalogPath is non-empty. An
// operator spec with a builtin's name replaces the builtin wholesale.
func NewRegistry(catalogPath string) (*Registry, error) {
	registry := &Registry{specs: make(map[string]Spec)}
	for _, spec := range builtinSpecs() {
		registry.specs[spec.Name] = spec
	}

	if catalogPath != "" {
		overrides, err := loadCatalogFile(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("loading capability catalog %s: %w", catalogPath, err)
		}
		for _, spec := range overrides {
			registry.specs[spec.Name] = spec
		}
	}

	return registry, nil
}

// Lookup returns the spec for name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns all catalog names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadCatalogFile parses an operator catalog. The file is JSONC so
// operators can comment their overrides; it converts to plain JSON
// before decoding.
func loadCatalogFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var specs []Spec
	if err := json.Unmarshal(jsonc.ToJSON(data), &specs); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if len(spec.Artifacts) == 0 {
			return nil, fmt.Errorf("catalog entry %q has no artifacts", spec.Name)
		}
		for platform, artifact := range spec.Artifacts {
			if artifact.URL == "" || artifact.SHA256 == "" {
				return nil, fmt.Errorf("catalog entry %q artifact %q needs url and sha256", spec.Name, platform)
			}
		}
	}
	return specs, nil
}
