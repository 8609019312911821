// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package environment implements the environment lifecycle commands:
// setup, launch, list, remove, backup, and clean.
package environment
