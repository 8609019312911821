// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rootbox-sh/rootbox/lib/catalog"
	"github.com/rootbox-sh/rootbox/lib/rootfs"
)

// Validate checks that root looks like an initialized environment:
// the directory exists, carries an /etc and at least one of /bin or
// /usr/bin, and has the injection marker. Failures wrap
// catalog.ErrCorrupt so callers can flag the record.
func Validate(root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: root directory %s is missing", catalog.ErrCorrupt, root)
	}
	if info, err := os.Stat(filepath.Join(root, "etc")); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s has no etc directory", catalog.ErrCorrupt, root)
	}
	hasBin := false
	for _, rel := range []string{"bin", "usr/bin"} {
		// Lstat: /bin is often an absolute symlink to /usr/bin,
		// which must not resolve against the host during checks.
		if info, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel))); err == nil && (info.IsDir() || info.Mode()&os.ModeSymlink != 0) {
			hasBin = true
			break
		}
	}
	if !hasBin {
		return fmt.Errorf("%w: %s has neither bin nor usr/bin", catalog.ErrCorrupt, root)
	}
	if !rootfs.HasProfile(root) {
		return fmt.Errorf("%w: %s is missing the injection marker", catalog.ErrCorrupt, root)
	}
	return nil
}
