// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"

	"github.com/rootbox-sh/rootbox/lib/builder"
	"github.com/rootbox-sh/rootbox/lib/catalog"
	"github.com/rootbox-sh/rootbox/lib/clock"
	"github.com/rootbox-sh/rootbox/lib/config"
	"github.com/rootbox-sh/rootbox/lib/distro"
	"github.com/rootbox-sh/rootbox/lib/fetch"
	"github.com/rootbox-sh/rootbox/lib/lifecycle"
	"github.com/rootbox-sh/rootbox/sandbox"
)

// CommonParams are the flags every command accepts.
type CommonParams struct {
	Config  string `flag:"config" desc:"config file path (default: $ROOTBOX_CONFIG)"`
	Verbose bool   `flag:"verbose,v" desc:"enable debug logging"`
}

// App holds everything a command needs after configuration is loaded.
// Commands open it, do their work, and Close it.
type App struct {
	Config   *config.Config
	Catalog  *catalog.Store
	Locker   *catalog.Locker
	Registry *distro.Registry
	Logger   *slog.Logger
}

// OpenApp loads configuration, prepares the data directories, and
// opens the catalog and registry.
func OpenApp(common CommonParams) (*App, error) {
	cfg, err := config.Load(common.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	logger := NewCommandLogger(common.Verbose)

	registry, err := distro.Load(cfg.RegistryDir)
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(catalog.Config{
		Path:   cfg.CatalogPath(),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Catalog:  store,
		Locker:   catalog.NewLocker(cfg.LocksDir(), clock.Real()),
		Registry: registry,
		Logger:   logger,
	}, nil
}

func (a *App) Close() error {
	return a.Catalog.Close()
}

// Builder assembles the setup pipeline over the app's components.
func (a *App) Builder() *builder.Builder {
	return &builder.Builder{
		Catalog:  a.Catalog,
		Locker:   a.Locker,
		Registry: a.Registry,
		Fetcher:  a.Fetcher(),
		Logger:   a.Logger,

		EnvironmentsDir: a.Config.EnvironmentsDir(),
		ArchivesDir:     a.Config.ArchivesDir(),
	}
}

func (a *App) Fetcher() *fetch.Fetcher {
	return fetch.New(fetch.Config{Logger: a.Logger})
}

func (a *App) Lifecycle() *lifecycle.Manager {
	return &lifecycle.Manager{
		Catalog: a.Catalog,
		Locker:  a.Locker,
		Logger:  a.Logger,
	}
}

// Planner loads the configured launch profile, or the named override
// when profileName is non-empty.
func (a *App) Planner(profileName string) (*sandbox.Planner, error) {
	loader, err := sandbox.LoadProfiles(a.Config.ProfileDir)
	if err != nil {
		return nil, err
	}
	if profileName == "" {
		profileName = a.Config.LaunchProfile
	}
	profile, err := loader.Get(profileName)
	if err != nil {
		return nil, err
	}
	return &sandbox.Planner{Profile: profile, Logger: a.Logger}, nil
}

// Sandbox builds the launcher, routing through the configured bridge
// command when one is set.
func (a *App) Sandbox() *sandbox.Sandbox {
	cfg := sandbox.Config{
		ProotPath: a.Config.ProotPath,
		Logger:    a.Logger,
	}
	if len(a.Config.BridgeCommand) > 0 {
		cfg.Executor = sandbox.BridgeExecutor{Command: a.Config.BridgeCommand}
	}
	return sandbox.New(cfg)
}

// OneName extracts the single NAME positional argument.
func OneName(args []string, usage string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return args[0], nil
}
