// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package mdterm

import (
	"strings"
	"testing"
)

func TestRenderPlainStructure(t *testing.T) {
	input := `# Alpine Linux

**Alpine** is small and *simple*. The ` + "`minirootfs`" + ` image
unpacks to under 10 MB.

- first point
- second point

` + "```sh\napk update\n```\n"

	out := Render(input, Options{Width: 60})

	for _, want := range []string{
		"Alpine Linux",
		"unpacks to under 10 MB",
		"• first point",
		"• second point",
		"    apk update",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Soft-wrapped source reflows: the paragraph's line break is gone.
	if strings.Contains(out, "image\nunpacks") {
		t.Error("soft line break not reflowed")
	}
}

func TestRenderOrderedList(t *testing.T) {
	out := Render("1. alpha\n2. beta\n", Options{Width: 60})
	if !strings.Contains(out, "1. alpha") || !strings.Contains(out, "2. beta") {
		t.Errorf("ordered list numbering lost:\n%s", out)
	}
}

func TestRenderWrapsLongParagraphs(t *testing.T) {
	input := strings.Repeat("word ", 40)
	out := Render(input, Options{Width: 40})
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 45 {
			t.Errorf("line exceeds wrap width: %q", line)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	if out := Render("   \n", Options{}); out != "" {
		t.Errorf("Render of blank input = %q, want empty", out)
	}
}
