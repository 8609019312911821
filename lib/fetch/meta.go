// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// partMeta is the resume sidecar stored next to the ".part" file. A
// partial download is only resumed when the sidecar exists and its URL
// matches the request; anything else restarts from zero.
type partMeta struct {
	URL   string `cbor:"1,keyasint"`
	ETag  string `cbor:"2,keyasint,omitempty"`
	Total int64  `cbor:"3,keyasint,omitempty"`
}

func metaPath(dest string) string { return dest + ".part.meta" }
func partPath(dest string) string { return dest + ".part" }

func writeMeta(dest string, meta partMeta) error {
	data, err := cbor.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding resume sidecar: %w", err)
	}
	if err := os.WriteFile(metaPath(dest), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing resume sidecar: %v", ErrStorage, err)
	}
	return nil
}

// readMeta returns the sidecar for dest, or false when it is absent or
// unreadable (both mean "do not resume").
func readMeta(dest string) (partMeta, bool) {
	data, err := os.ReadFile(metaPath(dest))
	if err != nil {
		return partMeta{}, false
	}
	var meta partMeta
	if err := cbor.Unmarshal(data, &meta); err != nil {
		return partMeta{}, false
	}
	return meta, true
}

func removePartial(dest string) {
	os.Remove(partPath(dest))
	os.Remove(metaPath(dest))
}
