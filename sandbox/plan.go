// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rootbox-sh/rootbox/lib/catalog"
)

// LaunchSpec is a fully resolved launch: everything proot needs, with
// no remaining host dependence. Building the argument vector from a
// spec is deterministic.
type LaunchSpec struct {
	RootDir       string
	WorkingDir    string
	Binds         []Bind
	Env           map[string]string
	KernelRelease string

	// Command is the guest argv: the login shell alone, or the login
	// shell running the caller's command with -c.
	Command []string
}

// scratchDirs are created (idempotently) at plan time so the guest
// always has a writable tmp and shared-memory directory.
var scratchDirs = []string{"tmp", "dev/shm"}

// Planner resolves a Profile against an environment record and the
// host filesystem.
type Planner struct {
	Profile *Profile

	// Probe reports whether a host path exists. Defaults to os.Stat;
	// tests substitute a map lookup.
	Probe func(path string) bool

	Logger *slog.Logger
}

func (p *Planner) probe(path string) bool {
	if p.Probe != nil {
		return p.Probe(path)
	}
	_, err := os.Stat(path)
	return err == nil
}

// Plan validates the environment root, prepares its scratch
// directories, and resolves the profile's binds against the host.
// Optional binds with absent sources are dropped; required ones fail.
func (p *Planner) Plan(env catalog.Environment, command []string) (*LaunchSpec, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch env.Status {
	case catalog.StatusActive:
	case catalog.StatusPending:
		return nil, fmt.Errorf("environment %s is still being set up", env.Name)
	default:
		return nil, fmt.Errorf("%w: %s", catalog.ErrCorrupt, env.Name)
	}
	if err := Validate(env.RootDir); err != nil {
		return nil, err
	}

	for _, rel := range scratchDirs {
		dir := filepath.Join(env.RootDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("preparing scratch directory %s: %w", dir, err)
		}
	}

	var binds []Bind
	for _, bind := range p.Profile.Binds {
		if p.probe(bind.Source) {
			binds = append(binds, bind)
			continue
		}
		if !bind.Optional {
			return nil, fmt.Errorf("required bind source %s is missing on this host", bind.Source)
		}
		logger.Debug("dropping optional bind", "source", bind.Source)
	}

	envVars := map[string]string{
		"HOME":     "/root",
		"HOSTNAME": env.Hostname,
		"SHELL":    env.Shell,
		"PATH":     "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
	}
	for k, v := range p.Profile.Env {
		envVars[k] = v
	}

	// The guest command always runs under a login shell so the
	// injected profile (PATH, locale) applies to one-shot commands the
	// same way it does to interactive sessions.
	if len(command) == 0 {
		command = []string{env.Shell, "-l"}
	} else {
		command = []string{env.Shell, "-l", "-c", strings.Join(command, " ")}
	}

	return &LaunchSpec{
		RootDir:       env.RootDir,
		WorkingDir:    p.Profile.WorkingDir,
		Binds:         binds,
		Env:           envVars,
		KernelRelease: p.Profile.KernelRelease,
		Command:       command,
	}, nil
}

// ProotArgs renders the spec as a proot argument vector (without the
// proot binary itself). Binds keep profile order; environment
// variables are sorted so identical specs produce identical argv.
func (s *LaunchSpec) ProotArgs() []string {
	args := []string{
		"--kill-on-exit",
		"--link2symlink",
		"-0",
		"-r", s.RootDir,
	}
	for _, bind := range s.Binds {
		spec := bind.Source
		if bind.Dest != "" && bind.Dest != bind.Source {
			spec = bind.Source + ":" + bind.Dest
		}
		args = append(args, "-b", spec)
	}
	args = append(args, "-w", s.WorkingDir)
	if s.KernelRelease != "" {
		args = append(args, "--kernel-release="+s.KernelRelease)
	}

	args = append(args, "/usr/bin/env", "-i")
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k+"="+s.Env[k])
	}
	return append(args, s.Command...)
}
