// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the rootbox host configuration.
//
// Configuration comes from a single JSONC file (JSON with comments and
// trailing commas) named by the ROOTBOX_CONFIG environment variable or
// the --config flag. There is no search path and no automatic
// discovery: a missing explicit path is an error, and no path at all
// means pure defaults. Every directory rootbox touches derives from
// BaseDir unless overridden individually.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "ROOTBOX_CONFIG"

// Config is the host configuration.
type Config struct {
	// BaseDir is the root of all rootbox data. Defaults to
	// ~/.rootbox.
	BaseDir string `json:"base_dir"`

	// RegistryDir holds distribution registry override files.
	// Defaults to <BaseDir>/registry.d.
	RegistryDir string `json:"registry_dir"`

	// ProfileDir holds launch profile override files. Defaults to
	// <BaseDir>/profiles.d.
	ProfileDir string `json:"profile_dir"`

	// ProotPath is the proot binary. Defaults to "proot" on PATH.
	ProotPath string `json:"proot_path"`

	// BridgeCommand, when non-empty, prefixes every launch (for
	// example ["rish", "-c"] to run through a Shizuku shell).
	BridgeCommand []string `json:"bridge_command"`

	// DefaultDistribution is used by setup when none is given.
	DefaultDistribution string `json:"default_distribution"`

	// LaunchProfile names the launch profile to use. Defaults to
	// "default".
	LaunchProfile string `json:"launch_profile"`
}

// Load reads the config file at path, or from ROOTBOX_CONFIG when path
// is empty, or returns defaults when neither is set. An explicitly
// named file that is missing or malformed is an error; silence never
// is.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		c.BaseDir = filepath.Join(home, ".rootbox")
	}
	if c.RegistryDir == "" {
		c.RegistryDir = filepath.Join(c.BaseDir, "registry.d")
	}
	if c.ProfileDir == "" {
		c.ProfileDir = filepath.Join(c.BaseDir, "profiles.d")
	}
	if c.ProotPath == "" {
		c.ProotPath = "proot"
	}
	if c.LaunchProfile == "" {
		c.LaunchProfile = "default"
	}
	return nil
}

// Derived locations. These are not configurable individually; they
// move with BaseDir.

// EnvironmentsDir holds one root directory per environment.
func (c *Config) EnvironmentsDir() string { return filepath.Join(c.BaseDir, "environments") }

// ArchivesDir caches downloaded rootfs archives.
func (c *Config) ArchivesDir() string { return filepath.Join(c.BaseDir, "archives") }

// BackupsDir is the default destination for backups.
func (c *Config) BackupsDir() string { return filepath.Join(c.BaseDir, "backups") }

// StateDir holds the catalog database and lock files.
func (c *Config) StateDir() string { return filepath.Join(c.BaseDir, "state") }

// CatalogPath is the catalog database file.
func (c *Config) CatalogPath() string { return filepath.Join(c.StateDir(), "catalog.db") }

// LocksDir holds the per-environment advisory lock files.
func (c *Config) LocksDir() string { return filepath.Join(c.StateDir(), "locks") }

// EnsureDirs creates the directories rootbox writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.BaseDir, c.EnvironmentsDir(), c.ArchivesDir(),
		c.BackupsDir(), c.StateDir(), c.LocksDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
