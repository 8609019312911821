// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the backup archive codec.
type Compression string

const (
	// CompressionNone writes a plain tar.
	CompressionNone Compression = "none"
	// CompressionZstd is the default: good ratio at rootfs-friendly
	// speed.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 trades ratio for speed on slow devices.
	CompressionLZ4 Compression = "lz4"
)

// ParseCompression maps a user-supplied name to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return Compression(s), nil
	case "":
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", s)
}

// Extension returns the conventional file suffix for archives using
// this codec.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".tar.zst"
	case CompressionLZ4:
		return ".tar.lz4"
	default:
		return ".tar"
	}
}

// wrap layers the codec's writer over w. The returned closer flushes
// the codec; the caller still closes w itself.
func (c Compression) wrap(w io.Writer) (io.Writer, func() error, error) {
	switch c {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		return lw, lw.Close, nil
	case CompressionNone, "":
		return w, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown compression %q", string(c))
}
