// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package distro is the distribution registry: a static description of
// the root-filesystem images rootbox knows how to install. The registry
// is compiled in (registry.yaml) and may be extended or overridden by
// YAML files in a user directory; after loading it is immutable.
//
// Each distribution lists its variants (minirootfs, minimal, full, ...)
// and a download URL template per variant. Architecture handling is two
// stage: the host architecture is first normalized to one of four
// canonical names (arm64, arm, x86_64, x86), then mapped through the
// distribution's alias table to the name its mirror uses (aarch64,
// armhf, amd64, i686, ...). Checksums are optional per variant and
// architecture; when present they are lower-case hex sha256 or sha512
// digests and the fetcher treats a mismatch as fatal.
package distro
