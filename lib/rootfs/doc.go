// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package rootfs unpacks distribution archives and stamps them with
// the files an environment needs before first launch.
//
// Extract accepts tar archives compressed with gzip, xz, zstd, or lz4
// (or not at all), detected from magic bytes rather than file
// extension. Entries are validated so that a hostile archive cannot
// write outside the target directory through absolute paths, ".."
// components, or link targets. Archives that wrap the filesystem in a
// single top-level directory (as Alpine's minirootfs does not but most
// others do) are flattened so the target directory is itself the root.
//
// InjectProfile writes the host-side identity files (hostname, hosts,
// resolv.conf, a profile.d snippet) and a marker recording a digest of
// what was injected. The marker is how other packages distinguish an
// initialized environment root from an arbitrary directory.
package rootfs
