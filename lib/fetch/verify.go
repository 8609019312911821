// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Digest hex lengths select the algorithm: registries publish either
// sha256 (64 hex chars) or sha512 (128 hex chars) sums.
const (
	sha256HexLen = sha256.Size * 2
	sha512HexLen = sha512.Size * 2
)

// VerifyFile streams the file at path through the digest algorithm
// implied by the length of expected (lower-cased hex) and compares the
// result. A mismatch returns ErrIntegrity with both digests; an
// unusable expected string is also an ErrIntegrity since the archive
// cannot be proven authentic.
func VerifyFile(path, expected string) error {
	expected = strings.ToLower(strings.TrimSpace(expected))

	var hasher hash.Hash
	switch len(expected) {
	case sha256HexLen:
		hasher = sha256.New()
	case sha512HexLen:
		hasher = sha512.New()
	default:
		return fmt.Errorf("%w: checksum %q is neither sha256 nor sha512 hex", ErrIntegrity, expected)
	}
	if _, err := hex.DecodeString(expected); err != nil {
		return fmt.Errorf("%w: checksum %q is not valid hex", ErrIntegrity, expected)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s for verification: %v", ErrStorage, path, err)
	}
	defer file.Close()

	if _, err := io.Copy(hasher, file); err != nil {
		return fmt.Errorf("%w: reading %s for verification: %v", ErrStorage, path, err)
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if actual != expected {
		return fmt.Errorf("%w: %s digest %s, want %s", ErrIntegrity, path, actual, expected)
	}
	return nil
}
