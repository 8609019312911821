// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Bind maps a host path into the guest filesystem.
type Bind struct {
	// Source is the host path. Probed before launch.
	Source string `yaml:"source"`

	// Dest is the guest path. Defaults to Source.
	Dest string `yaml:"dest,omitempty"`

	// Optional binds are silently dropped when Source does not exist
	// on this host. Required binds that are missing fail the plan.
	Optional bool `yaml:"optional,omitempty"`
}

// Profile is a declarative launch configuration. Binds apply in list
// order; later profiles loaded over this one replace it wholesale
// rather than merging.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Binds are applied in order. Order matters to proot: a bind of
	// /dev must precede binds of paths under /dev.
	Binds []Bind `yaml:"binds"`

	// Env is merged over the base environment; keys here win.
	Env map[string]string `yaml:"env,omitempty"`

	// WorkingDir is the guest directory the shell starts in.
	// Defaults to /root.
	WorkingDir string `yaml:"working_dir,omitempty"`

	// KernelRelease, when set, is reported to the guest instead of
	// the host kernel version. Old glibc builds refuse kernels they
	// do not recognize; Android kernels are routinely "too old".
	KernelRelease string `yaml:"kernel_release,omitempty"`
}

// parseProfile decodes and validates a YAML profile document.
func parseProfile(data []byte, origin string) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", origin, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("profile %s: name is required", origin)
	}
	for i := range p.Binds {
		if p.Binds[i].Source == "" {
			return nil, fmt.Errorf("profile %s: bind %d has no source", origin, i)
		}
		if p.Binds[i].Dest == "" {
			p.Binds[i].Dest = p.Binds[i].Source
		}
	}
	if p.WorkingDir == "" {
		p.WorkingDir = "/root"
	}
	return &p, nil
}

// Clone returns a deep copy so callers can adjust a loaded profile
// without mutating the loader's cache.
func (p *Profile) Clone() *Profile {
	out := *p
	out.Binds = make([]Bind, len(p.Binds))
	copy(out.Binds, p.Binds)
	if p.Env != nil {
		out.Env = make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			out.Env[k] = v
		}
	}
	return &out
}
