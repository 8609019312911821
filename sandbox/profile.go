// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed profiles/*.yaml
var embeddedProfiles embed.FS

// ProfileLoader resolves launch profiles by name: compiled-in defaults
// first, then *.yaml files from an optional override directory. An
// override with the same name as a built-in replaces it wholesale.
type ProfileLoader struct {
	profiles map[string]*Profile
}

// LoadProfiles builds a loader from the embedded profiles plus the
// override directory (may be empty or nonexistent).
func LoadProfiles(overrideDir string) (*ProfileLoader, error) {
	loader := &ProfileLoader{profiles: make(map[string]*Profile)}

	entries, err := embeddedProfiles.ReadDir("profiles")
	if err != nil {
		return nil, fmt.Errorf("reading embedded profiles: %w", err)
	}
	for _, entry := range entries {
		data, err := embeddedProfiles.ReadFile("profiles/" + entry.Name())
		if err != nil {
			return nil, err
		}
		p, err := parseProfile(data, entry.Name())
		if err != nil {
			return nil, err
		}
		loader.profiles[p.Name] = p
	}

	if overrideDir != "" {
		if err := loader.loadDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return loader, nil
}

func (l *ProfileLoader) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading profile directory %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".yaml") || strings.HasSuffix(entry.Name(), ".yml") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading profile %s: %w", path, err)
		}
		p, err := parseProfile(data, path)
		if err != nil {
			return err
		}
		l.profiles[p.Name] = p
	}
	return nil
}

// Get returns a copy of the named profile.
func (l *ProfileLoader) Get(name string) (*Profile, error) {
	p, ok := l.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown launch profile %q (have %s)",
			name, strings.Join(l.Names(), ", "))
	}
	return p.Clone(), nil
}

// Names lists the available profiles in sorted order.
func (l *ProfileLoader) Names() []string {
	names := make([]string, 0, len(l.profiles))
	for name := range l.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
