// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch downloads root-filesystem archives over HTTP(S) with
// resume, bounded retry, and checksum verification.
//
// Downloads stream to "<dest>.part" with a small CBOR sidecar
// ("<dest>.part.meta") recording the source URL, validator, and total
// size. When a later invocation finds a partial file whose sidecar
// matches the requested URL, it issues a ranged request and continues
// from the existing offset; servers that ignore the Range header cause
// a clean restart from zero. Only after the stream completes and the
// declared checksum verifies is the file renamed into place, so a
// destination path either holds a fully verified archive or nothing.
//
// Error taxonomy: ErrNetwork for transport and HTTP failures (transient
// ones are retried with exponential backoff before surfacing),
// ErrStorage for local disk problems, and ErrIntegrity for checksum
// mismatches. Integrity failures delete the partial file before
// returning so a corrupt download is never mistaken for resumable
// progress, and they are never retried silently.
package fetch
