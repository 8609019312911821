// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfilesEmbeddedDefault(t *testing.T) {
	loader, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	p, err := loader.Get("default")
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	if len(p.Binds) == 0 {
		t.Error("default profile has no binds")
	}
	if p.Binds[0].Source != "/dev" {
		t.Errorf("first bind = %s, want /dev", p.Binds[0].Source)
	}
	if p.Binds[0].Optional {
		t.Error("/dev bind must be required")
	}
	if p.WorkingDir != "/root" {
		t.Errorf("working dir = %s", p.WorkingDir)
	}
}

func TestLoadProfilesOverride(t *testing.T) {
	dir := t.TempDir()
	override := `
name: default
binds:
  - source: /dev
  - source: /custom/mount
    dest: /mnt
env:
  FOO: bar
`
	if err := os.WriteFile(filepath.Join(dir, "default.yaml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	loader, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	p, err := loader.Get("default")
	if err != nil {
		t.Fatal(err)
	}
	// Replacement is wholesale, not a merge.
	if len(p.Binds) != 2 {
		t.Errorf("override profile has %d binds, want 2", len(p.Binds))
	}
	if p.Binds[1].Dest != "/mnt" {
		t.Errorf("bind dest = %s, want /mnt", p.Binds[1].Dest)
	}
	if p.Env["FOO"] != "bar" {
		t.Error("override env lost")
	}
}

func TestLoadProfilesUnknownName(t *testing.T) {
	loader, err := LoadProfiles("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Get("nope"); err == nil {
		t.Error("Get(nope) succeeded")
	}
}

func TestProfileCloneIsolation(t *testing.T) {
	loader, err := LoadProfiles("")
	if err != nil {
		t.Fatal(err)
	}
	p1, _ := loader.Get("default")
	p1.Binds[0].Source = "/tampered"
	p1.Env["TERM"] = "dumb"

	p2, _ := loader.Get("default")
	if p2.Binds[0].Source == "/tampered" {
		t.Error("Get returned a shared Binds slice")
	}
	if p2.Env["TERM"] == "dumb" {
		t.Error("Get returned a shared Env map")
	}
}
