// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the persistent record of managed environments.
//
// Records live in a single SQLite database under the state directory.
// Each environment has exactly one row keyed by name; names are unique
// case-insensitively so "Dev" and "dev" cannot coexist. A record moves
// through three statuses: pending (setup in flight or failed partway),
// active (usable), and corrupt (flagged by validation at launch).
//
// The database opens in WAL mode with synchronous=NORMAL. That pairing
// survives process crashes intact; a power loss at the wrong instant
// can drop the most recent transactions but never corrupts the file,
// which is the right trade for a catalog whose worst case is re-running
// a setup.
//
// Mutating operations on one environment are serialized by name-scoped
// advisory file locks (see Locker), not by database transactions, so
// the lock also covers the filesystem work that accompanies a record
// change.
package catalog
