// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rootbox-sh/rootbox/lib/catalog"
)

// ErrConfirmationRequired means a destructive operation was invoked
// without confirmation. Nothing has been modified.
var ErrConfirmationRequired = errors.New("confirmation required")

// scratchDirs are the environment-relative directories Clean empties.
var scratchDirs = []string{"tmp", "dev/shm"}

// Manager performs lifecycle operations against the catalog and the
// environment directories it references.
type Manager struct {
	Catalog *catalog.Store
	Locker  *catalog.Locker
	Logger  *slog.Logger
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// RemoveOptions controls Remove.
type RemoveOptions struct {
	// Confirmed is set after the user answered an interactive prompt.
	Confirmed bool
	// Force skips the prompt entirely (scripting).
	Force bool
}

// Remove deletes the environment's directory tree and then its catalog
// record. Without Confirmed or Force it fails with
// ErrConfirmationRequired before touching anything.
func (m *Manager) Remove(ctx context.Context, name string, opts RemoveOptions) error {
	env, err := m.Catalog.Get(ctx, name)
	if err != nil {
		return err
	}
	if !opts.Confirmed && !opts.Force {
		return fmt.Errorf("%w: removing %s deletes %s", ErrConfirmationRequired, name, env.RootDir)
	}

	lock, err := m.Locker.Acquire(name)
	if err != nil {
		return err
	}
	defer lock.Release()

	// Directory before record: a crash in between leaves a record
	// pointing at nothing, which list and launch surface clearly.
	if err := os.RemoveAll(env.RootDir); err != nil {
		return fmt.Errorf("removing %s: %w", env.RootDir, err)
	}
	if err := m.Catalog.Remove(ctx, name); err != nil {
		return err
	}
	m.logger().Info("environment removed", "name", name, "root_dir", env.RootDir)
	return nil
}

// Clean empties the environment's scratch directories and reports the
// bytes freed. Missing scratch directories are not an error, so Clean
// is idempotent.
func (m *Manager) Clean(ctx context.Context, name string) (int64, error) {
	env, err := m.Catalog.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	lock, err := m.Locker.Acquire(name)
	if err != nil {
		return 0, err
	}
	defer lock.Release()

	var freed int64
	for _, rel := range scratchDirs {
		dir := filepath.Join(env.RootDir, filepath.FromSlash(rel))
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return freed, fmt.Errorf("cleaning %s: %w", dir, err)
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			freed += treeSize(path)
			if err := os.RemoveAll(path); err != nil {
				return freed, fmt.Errorf("cleaning %s: %w", path, err)
			}
		}
	}
	m.logger().Info("scratch space cleaned", "name", name, "bytes_freed", freed)
	return freed, nil
}

// treeSize sums regular file sizes under path. Best effort; unreadable
// entries count as zero.
func treeSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
