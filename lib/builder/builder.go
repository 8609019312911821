// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rootbox-sh/rootbox/lib/catalog"
	"github.com/rootbox-sh/rootbox/lib/distro"
	"github.com/rootbox-sh/rootbox/lib/fetch"
	"github.com/rootbox-sh/rootbox/lib/rootfs"
)

// Stage identifies where in the pipeline a setup failed.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageInject   Stage = "inject"
	StageRegister Stage = "register"
)

// SetupError wraps a pipeline failure with the environment name and
// the stage that failed.
type SetupError struct {
	Environment string
	Stage       Stage
	Err         error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setting up %s: %s stage: %v", e.Environment, e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// CustomDistribution is the catalog distribution name recorded for
// environments built from a user-supplied archive.
const CustomDistribution = "custom"

// preservedSubtrees are kept across a Resetup so user data survives a
// base refresh.
var preservedSubtrees = []string{"root", "home"}

// Request describes one environment to build.
type Request struct {
	Name string

	// Distribution and Variant select a registry entry. Ignored when
	// CustomArchive is set. An empty Variant means the distribution's
	// default.
	Distribution string
	Variant      string

	// CustomArchive is a local path or http(s) URL of a rootfs
	// archive to use instead of a registry entry.
	CustomArchive string

	// Hostname defaults to Name and Shell to /bin/sh for new
	// environments; on resetup an empty Hostname or Shell keeps the
	// recorded one.
	Hostname string
	Shell    string

	// Force discards an existing environment of the same name before
	// building.
	Force bool

	// Resetup re-extracts the base system of an existing environment
	// while keeping its catalog record and the preserved subtrees
	// (root and home).
	Resetup bool

	// Progress receives download progress when set.
	Progress fetch.Progress
}

// Builder wires the setup pipeline together.
type Builder struct {
	Catalog  *catalog.Store
	Locker   *catalog.Locker
	Registry *distro.Registry
	Fetcher  *fetch.Fetcher
	Logger   *slog.Logger

	// EnvironmentsDir holds one subdirectory per environment root.
	EnvironmentsDir string
	// ArchivesDir caches downloaded archives across environments.
	ArchivesDir string
}

// Build runs the full setup pipeline for req and returns the resulting
// catalog record.
func (b *Builder) Build(ctx context.Context, req Request) (catalog.Environment, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := catalog.ValidateName(req.Name); err != nil {
		return catalog.Environment{}, err
	}

	lock, err := b.Locker.Acquire(req.Name)
	if err != nil {
		return catalog.Environment{}, err
	}
	defer lock.Release()

	rootDir := filepath.Join(b.EnvironmentsDir, req.Name)

	existing, err := b.Catalog.Get(ctx, req.Name)
	switch {
	case err == nil && req.Resetup:
		// Keep the record; refresh the base system in place.
		rootDir = existing.RootDir
		if req.CustomArchive == "" && req.Distribution == "" {
			req.Distribution = existing.Distribution
			req.Variant = existing.Variant
		}
		if req.Hostname == "" {
			req.Hostname = existing.Hostname
		} else if req.Hostname != existing.Hostname {
			if err := b.Catalog.UpdateHostname(ctx, req.Name, req.Hostname); err != nil {
				return catalog.Environment{}, err
			}
		}
		if req.Shell != "" && req.Shell != existing.Shell {
			if err := b.Catalog.UpdateShell(ctx, req.Name, req.Shell); err != nil {
				return catalog.Environment{}, err
			}
		}
		if err := b.Catalog.SetStatus(ctx, req.Name, catalog.StatusPending); err != nil {
			return catalog.Environment{}, err
		}
	case err == nil && req.Force:
		logger.Info("discarding existing environment", "name", req.Name)
		if err := os.RemoveAll(existing.RootDir); err != nil {
			return catalog.Environment{}, fmt.Errorf("removing %s: %w", existing.RootDir, err)
		}
		if err := b.Catalog.Remove(ctx, req.Name); err != nil {
			return catalog.Environment{}, err
		}
	case err == nil:
		return catalog.Environment{}, fmt.Errorf("%w: %s (use force to replace)", catalog.ErrExists, req.Name)
	case errors.Is(err, catalog.ErrNotFound) && req.Resetup:
		return catalog.Environment{}, err
	case !errors.Is(err, catalog.ErrNotFound):
		return catalog.Environment{}, err
	}

	source, archive, err := b.resolve(req)
	if err != nil {
		return catalog.Environment{}, &SetupError{req.Name, StageResolve, err}
	}

	if !req.Resetup {
		if req.Hostname == "" {
			req.Hostname = req.Name
		}
		if req.Shell == "" {
			req.Shell = "/bin/sh"
		}
		env := catalog.Environment{
			Name:         req.Name,
			RootDir:      rootDir,
			Distribution: source.Distribution,
			Variant:      source.Variant,
			Hostname:     req.Hostname,
			Shell:        req.Shell,
		}
		if err := b.Catalog.Create(ctx, env); err != nil {
			return catalog.Environment{}, &SetupError{req.Name, StageRegister, err}
		}
	}

	if source.URL != "" {
		result, err := b.Fetcher.Fetch(ctx, fetch.Task{
			URL:          source.URL,
			Dest:         archive,
			Checksum:     source.Checksum,
			ExpectedSize: source.Size,
			Progress:     req.Progress,
		})
		if err != nil {
			return catalog.Environment{}, &SetupError{req.Name, StageFetch, err}
		}
		logger.Info("archive ready", "path", result.Path, "reused", result.Reused)
	}

	opts := rootfs.ExtractOptions{Logger: logger}
	if req.Resetup {
		opts.Preserve = preservedSubtrees
	}
	if err := rootfs.Extract(ctx, archive, rootDir, opts); err != nil {
		return catalog.Environment{}, &SetupError{req.Name, StageExtract, err}
	}

	if err := rootfs.InjectProfile(rootDir, rootfs.ProfileSpec{Hostname: req.Hostname}); err != nil {
		return catalog.Environment{}, &SetupError{req.Name, StageInject, err}
	}

	if err := b.Catalog.SetStatus(ctx, req.Name, catalog.StatusActive); err != nil {
		return catalog.Environment{}, &SetupError{req.Name, StageRegister, err}
	}
	env, err := b.Catalog.Get(ctx, req.Name)
	if err != nil {
		return catalog.Environment{}, err
	}
	logger.Info("environment ready",
		"name", env.Name, "distribution", env.Distribution, "root_dir", env.RootDir)
	return env, nil
}

// resolve determines the download source and the local archive path.
// For custom archives the returned Source carries CustomDistribution
// and, for local files, an empty URL meaning "no fetch needed".
func (b *Builder) resolve(req Request) (distro.Source, string, error) {
	if req.CustomArchive != "" {
		if isRemote(req.CustomArchive) {
			source := distro.Source{
				Distribution: CustomDistribution,
				URL:          req.CustomArchive,
			}
			name := source.Filename()
			if name == "" {
				return distro.Source{}, "", fmt.Errorf("custom archive URL %s does not name a file", req.CustomArchive)
			}
			return source, filepath.Join(b.ArchivesDir, name), nil
		}
		if _, err := os.Stat(req.CustomArchive); err != nil {
			return distro.Source{}, "", fmt.Errorf("custom archive: %w", err)
		}
		return distro.Source{Distribution: CustomDistribution}, req.CustomArchive, nil
	}

	arch, err := distro.HostArch()
	if err != nil {
		return distro.Source{}, "", err
	}
	source, err := b.Registry.Resolve(req.Distribution, req.Variant, arch)
	if err != nil {
		return distro.Source{}, "", err
	}
	return source, filepath.Join(b.ArchivesDir, source.Filename()), nil
}

func isRemote(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && strings.Contains(s, "://")
}
