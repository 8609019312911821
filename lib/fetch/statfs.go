// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// checkFreeSpace fails with ErrStorage when the filesystem holding dir
// has less than need bytes available to an unprivileged caller.
func checkFreeSpace(dir string, need int64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		// Exotic filesystems may not answer; the write itself will
		// surface real exhaustion.
		return nil
	}
	avail := int64(st.Bavail) * st.Bsize
	if avail < need {
		return fmt.Errorf("%w: %s has %s free, need %s", ErrStorage, dir,
			humanize.IBytes(uint64(avail)), humanize.IBytes(uint64(need)))
	}
	return nil
}
