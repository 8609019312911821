// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

// Package mdterm renders small markdown documents (distribution
// descriptions, command help blurbs) as styled terminal text.
//
// The renderer walks the goldmark AST directly instead of using the
// renderer interface: paragraph text accumulates and is word-wrapped
// as a unit when the paragraph closes, which streaming callbacks make
// awkward. Fenced code blocks go through chroma for syntax highlight.
// Output styling degrades to plain text when the writer is not a
// terminal.
package mdterm
