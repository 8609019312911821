// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rootbox-sh/rootbox/lib/catalog"
	"github.com/rootbox-sh/rootbox/lib/rootfs"
)

// validRoot builds a directory that passes Validate.
func validRoot(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "env")
	for _, sub := range []string{"etc", "bin"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := rootfs.InjectProfile(root, rootfs.ProfileSpec{Hostname: "dev"}); err != nil {
		t.Fatal(err)
	}
	return root
}

func activeEnv(root string) catalog.Environment {
	return catalog.Environment{
		Name:     "dev",
		RootDir:  root,
		Hostname: "dev",
		Shell:    "/bin/sh",
		Status:   catalog.StatusActive,
	}
}

func testProfile() *Profile {
	return &Profile{
		Name: "test",
		Binds: []Bind{
			{Source: "/dev"},
			{Source: "/proc"},
			{Source: "/sdcard", Optional: true},
			{Source: "/storage", Optional: true, Dest: "/media"},
		},
		Env:           map[string]string{"TERM": "xterm-256color"},
		WorkingDir:    "/root",
		KernelRelease: "6.2.1",
	}
}

// probeSet returns a probe that reports only the listed paths present.
func probeSet(present ...string) func(string) bool {
	return func(path string) bool {
		return slices.Contains(present, path)
	}
}

func TestPlanDropsAbsentOptionalBinds(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{
		Profile: testProfile(),
		Probe:   probeSet("/dev", "/proc", "/storage"),
	}

	spec, err := planner.Plan(activeEnv(root), nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	var sources []string
	for _, b := range spec.Binds {
		sources = append(sources, b.Source)
	}
	want := []string{"/dev", "/proc", "/storage"}
	if !slices.Equal(sources, want) {
		t.Errorf("bind sources = %v, want %v", sources, want)
	}
}

func TestPlanRequiredBindMissing(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{
		Profile: testProfile(),
		Probe:   probeSet("/dev"), // no /proc
	}
	if _, err := planner.Plan(activeEnv(root), nil); err == nil ||
		!strings.Contains(err.Error(), "/proc") {
		t.Errorf("Plan = %v, want required-bind error naming /proc", err)
	}
}

func TestPlanCreatesScratchDirs(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{Profile: testProfile(), Probe: probeSet("/dev", "/proc")}

	if _, err := planner.Plan(activeEnv(root), nil); err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"tmp", "dev/shm"} {
		info, err := os.Stat(filepath.Join(root, rel))
		if err != nil || !info.IsDir() {
			t.Errorf("scratch dir %s not created: %v", rel, err)
		}
	}
	// Idempotent on relaunch.
	if _, err := planner.Plan(activeEnv(root), nil); err != nil {
		t.Errorf("second Plan: %v", err)
	}
}

func TestPlanDeterministicArgs(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{
		Profile: testProfile(),
		Probe:   probeSet("/dev", "/proc", "/sdcard", "/storage"),
	}

	spec1, err := planner.Plan(activeEnv(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	spec2, err := planner.Plan(activeEnv(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(spec1.ProotArgs(), spec2.ProotArgs()) {
		t.Errorf("identical plans produced different argv:\n%v\n%v",
			spec1.ProotArgs(), spec2.ProotArgs())
	}
}

func TestProotArgs(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{
		Profile: testProfile(),
		Probe:   probeSet("/dev", "/proc", "/storage"),
	}
	spec, err := planner.Plan(activeEnv(root), nil)
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Join(spec.ProotArgs(), " ")

	for _, want := range []string{
		"--kill-on-exit",
		"--link2symlink",
		"-r " + root,
		"-b /dev",
		"-b /proc",
		"-b /storage:/media",
		"-w /root",
		"--kernel-release=6.2.1",
		"/usr/bin/env -i",
		"HOSTNAME=dev",
		"SHELL=/bin/sh",
		"TERM=xterm-256color",
		"/bin/sh -l",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("argv missing %q:\n%s", want, args)
		}
	}
	// Binds precede the command.
	if strings.Index(args, "-b /dev") > strings.Index(args, "/usr/bin/env") {
		t.Error("binds do not precede the env wrapper")
	}
}

func TestPlanExplicitCommand(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{Profile: testProfile(), Probe: probeSet("/dev", "/proc")}

	spec, err := planner.Plan(activeEnv(root), []string{"apk", "update"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/bin/sh", "-l", "-c", "apk update"}
	if !slices.Equal(spec.Command, want) {
		t.Errorf("Command = %v, want %v", spec.Command, want)
	}
	args := spec.ProotArgs()
	if args[len(args)-1] != "apk update" {
		t.Errorf("command not at argv tail: %v", args)
	}
}

func TestPlanRefusesPending(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{Profile: testProfile(), Probe: probeSet("/dev", "/proc")}

	env := activeEnv(root)
	env.Status = catalog.StatusPending
	if _, err := planner.Plan(env, nil); err == nil {
		t.Error("Plan accepted a pending environment")
	}
}

func TestPlanRefusesCorruptStatus(t *testing.T) {
	root := validRoot(t)
	planner := &Planner{Profile: testProfile(), Probe: probeSet("/dev", "/proc")}

	env := activeEnv(root)
	env.Status = catalog.StatusCorrupt
	if _, err := planner.Plan(env, nil); !errors.Is(err, catalog.ErrCorrupt) {
		t.Errorf("Plan on corrupt record = %v, want ErrCorrupt", err)
	}
}

func TestPlanRefusesCorruptRoot(t *testing.T) {
	planner := &Planner{Profile: testProfile(), Probe: probeSet("/dev", "/proc")}

	env := activeEnv(filepath.Join(t.TempDir(), "missing"))
	_, err := planner.Plan(env, nil)
	if err == nil {
		t.Fatal("Plan accepted a missing root")
	}
}
