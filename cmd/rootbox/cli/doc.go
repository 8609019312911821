// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the rootbox
// binary: a dispatching command tree over pflag, struct-tag flag
// binding, typo suggestions, confirmation prompts, and a logger whose
// format follows whether stderr is a terminal. It also carries the
// shared App context that opens the configuration, catalog, and
// registry for each command invocation.
package cli
