// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package rootfs

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// MarkerPath is the target-relative location of the injection marker.
// Its presence (with a well-formed digest) is what identifies a
// directory as an initialized environment root.
const MarkerPath = "etc/.rootbox-profile"

// ProfileSpec describes the identity files injected into a freshly
// extracted root.
type ProfileSpec struct {
	Hostname string

	// Nameservers for resolv.conf. Defaults to public resolvers,
	// since the host's resolv.conf is not world-readable on Android.
	Nameservers []string
}

var defaultNameservers = []string{"1.1.1.1", "8.8.8.8"}

const profileSnippet = `# Managed by rootbox; edits are overwritten on re-setup.
export LANG=${LANG:-C.UTF-8}
export TERM=${TERM:-xterm-256color}
export PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin
if [ -z "$TMPDIR" ]; then export TMPDIR=/tmp; fi
`

// InjectProfile writes the identity files for spec into root and
// records a digest of everything written in the marker file. Calling
// it again with the same spec is a no-op at the byte level, so
// injection is safe to repeat.
func InjectProfile(root string, spec ProfileSpec) error {
	if spec.Hostname == "" {
		return fmt.Errorf("injecting profile: hostname is empty")
	}
	nameservers := spec.Nameservers
	if len(nameservers) == 0 {
		nameservers = defaultNameservers
	}

	var resolv strings.Builder
	for _, ns := range nameservers {
		fmt.Fprintf(&resolv, "nameserver %s\n", ns)
	}
	hosts := fmt.Sprintf("127.0.0.1\tlocalhost\n127.0.1.1\t%s\n::1\tlocalhost ip6-localhost ip6-loopback\n", spec.Hostname)

	files := map[string]string{
		"etc/hostname":                spec.Hostname + "\n",
		"etc/hosts":                   hosts,
		"etc/resolv.conf":             resolv.String(),
		"etc/profile.d/zz-rootbox.sh": profileSnippet,
	}

	for rel, content := range files {
		dest := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("injecting %s: %w", rel, err)
		}
		// resolv.conf is commonly a dangling symlink into
		// /run; replace it with a regular file.
		if info, err := os.Lstat(dest); err == nil && info.Mode()&os.ModeSymlink != 0 {
			os.Remove(dest)
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return fmt.Errorf("injecting %s: %w", rel, err)
		}
	}

	marker := filepath.Join(root, filepath.FromSlash(MarkerPath))
	if err := os.WriteFile(marker, []byte(profileDigest(files)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing injection marker: %w", err)
	}
	return nil
}

// HasProfile reports whether root carries a well-formed injection
// marker.
func HasProfile(root string) bool {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(MarkerPath)))
	if err != nil {
		return false
	}
	digest := strings.TrimSpace(string(data))
	if len(digest) != blake3DigestHexLen {
		return false
	}
	_, err = hex.DecodeString(digest)
	return err == nil
}

const blake3DigestHexLen = 64

// profileDigest hashes the injected file set in path order so the
// marker is stable across runs.
func profileDigest(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	hasher := blake3.New()
	for _, p := range paths {
		hasher.WriteString(p)
		hasher.WriteString("\x00")
		hasher.WriteString(files[p])
		hasher.WriteString("\x00")
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
