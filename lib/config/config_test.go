// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir == "" {
		t.Fatal("BaseDir not defaulted")
	}
	if cfg.ProotPath != "proot" {
		t.Errorf("ProotPath = %s, want proot", cfg.ProotPath)
	}
	if cfg.LaunchProfile != "default" {
		t.Errorf("LaunchProfile = %s, want default", cfg.LaunchProfile)
	}
	if cfg.CatalogPath() != filepath.Join(cfg.BaseDir, "state", "catalog.db") {
		t.Errorf("CatalogPath = %s", cfg.CatalogPath())
	}
}

func TestLoadJSONCFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rootbox.jsonc")
	content := `{
	// data lives on the sdcard
	"base_dir": "` + dir + `/data",
	"proot_path": "/usr/local/bin/proot",
	"bridge_command": ["rish", "-c"],
	"default_distribution": "alpine",
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir != dir+"/data" {
		t.Errorf("BaseDir = %s", cfg.BaseDir)
	}
	if cfg.ProotPath != "/usr/local/bin/proot" {
		t.Errorf("ProotPath = %s", cfg.ProotPath)
	}
	if len(cfg.BridgeCommand) != 2 || cfg.BridgeCommand[0] != "rish" {
		t.Errorf("BridgeCommand = %v", cfg.BridgeCommand)
	}
	if cfg.DefaultDistribution != "alpine" {
		t.Errorf("DefaultDistribution = %s", cfg.DefaultDistribution)
	}
	// Unset fields still default.
	if cfg.RegistryDir != filepath.Join(cfg.BaseDir, "registry.d") {
		t.Errorf("RegistryDir = %s", cfg.RegistryDir)
	}
}

func TestLoadEnvVar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.jsonc")
	if err := os.WriteFile(path, []byte(`{"base_dir": "`+dir+`/env-base"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir != dir+"/env-base" {
		t.Errorf("BaseDir = %s, want env-base path", cfg.BaseDir)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jsonc")); err == nil {
		t.Error("Load of missing explicit path succeeded")
	}
}

func TestEnsureDirs(t *testing.T) {
	cfg := &Config{BaseDir: filepath.Join(t.TempDir(), "rb")}
	if err := cfg.applyDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{cfg.EnvironmentsDir(), cfg.ArchivesDir(), cfg.LocksDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}
