// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package builder turns a distribution selection into a launchable
// environment.
//
// Build runs the setup pipeline under the environment's advisory lock:
// resolve the download source, fetch and verify the archive, extract
// it into the environment root, inject the identity profile, and flip
// the catalog record to active. The record is created in pending state
// before any filesystem work, so an interrupted setup is visible in
// the catalog and the partial directory survives for inspection; a
// later Build of the same name with Force, or a Resetup, recovers it.
//
// Any stage failure is wrapped in *SetupError naming the stage, with
// the underlying taxonomy error (fetch.ErrNetwork, fetch.ErrIntegrity,
// rootfs.ErrExtraction, ...) reachable through errors.Is.
package builder
