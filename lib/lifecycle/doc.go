// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle implements the operations on environments that
// already exist: removal, backup, and scratch-space cleaning.
//
// Remove is destructive and therefore two-phase: without explicit
// confirmation it returns ErrConfirmationRequired and touches nothing.
// Once confirmed it deletes the directory tree first and the catalog
// record second, so a crash between the two leaves a record pointing
// at a missing directory (visible, recoverable) rather than an orphan
// directory no record knows about.
//
// Backup streams the environment root into a tar archive, optionally
// compressed (zstd or lz4) and optionally encrypted to age recipients.
// It deliberately takes no environment lock: a backup of a live
// environment may be mildly inconsistent, which beats blocking every
// other operation for the duration of a multi-gigabyte archive write.
//
// Clean empties the scratch directories (tmp and dev/shm) and is
// idempotent.
package lifecycle
