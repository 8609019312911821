// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package distro

import (
	"fmt"
	"runtime"
)

// Canonical architecture names. Every descriptor's Arches list and the
// fetch path speak these four; mirror-specific spellings live in each
// descriptor's arch_aliases table.
const (
	ArchARM64 = "arm64"
	ArchARM   = "arm"
	ArchX8664 = "x86_64"
	ArchX86   = "x86"
)

// HostArch returns the canonical architecture of the running process.
func HostArch() (string, error) {
	return canonicalArch(runtime.GOARCH)
}

func canonicalArch(goarch string) (string, error) {
	switch goarch {
	case "arm64":
		return ArchARM64, nil
	case "arm":
		return ArchARM, nil
	case "amd64":
		return ArchX8664, nil
	case "386":
		return ArchX86, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedArch, goarch)
}
