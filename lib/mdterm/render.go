// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package mdterm

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func parser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parserInstance
}

// Options adjusts rendering.
type Options struct {
	// Width is the wrap column. Defaults to 78.
	Width int

	// Color forces styled output; when false, styling follows
	// whether stdout is a terminal.
	Color bool
}

// Render converts markdown to terminal text.
func Render(input string, opts Options) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	width := opts.Width
	if width <= 0 {
		width = 78
	}

	profile := termenv.Ascii
	if opts.Color {
		profile = termenv.ANSI256
	}
	lipRenderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(profile))
	lipRenderer.SetColorProfile(profile)

	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	r := &renderer{
		source: source,
		width:  width,
		color:  opts.Color,

		heading: lipRenderer.NewStyle().Bold(true).Underline(true),
		bold:    lipRenderer.NewStyle().Bold(true),
		italic:  lipRenderer.NewStyle().Italic(true),
		code:    lipRenderer.NewStyle().Foreground(lipgloss.Color("213")),
		link:    lipRenderer.NewStyle().Foreground(lipgloss.Color("33")).Underline(true),
	}
	ast.Walk(document, r.walk)
	return strings.TrimRight(r.out.String(), "\n") + "\n"
}

type renderer struct {
	source []byte
	width  int
	color  bool

	heading, bold, italic, code, link lipgloss.Style

	out    strings.Builder
	inline strings.Builder

	boldDepth   int
	italicDepth int
	listDepth   int
	ordinal     []int
}

func (r *renderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Heading:
		if entering {
			r.inline.Reset()
		} else {
			r.out.WriteString(r.heading.Render(r.inline.String()))
			r.out.WriteString("\n\n")
			r.inline.Reset()
		}

	case *ast.Paragraph:
		if entering {
			r.inline.Reset()
		} else {
			r.flushParagraph()
		}

	case *ast.Text:
		if entering {
			r.writeStyled(string(n.Segment.Value(r.source)))
			// Soft breaks reflow; hard breaks stay.
			if n.HardLineBreak() {
				r.inline.WriteString("\n")
			} else if n.SoftLineBreak() {
				r.inline.WriteString(" ")
			}
		}

	case *ast.Emphasis:
		if n.Level >= 2 {
			if entering {
				r.boldDepth++
			} else {
				r.boldDepth--
			}
		} else {
			if entering {
				r.italicDepth++
			} else {
				r.italicDepth--
			}
		}

	case *ast.CodeSpan:
		if entering {
			r.inline.WriteString(r.code.Render(string(n.Text(r.source))))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		if !entering {
			r.inline.WriteString(" (" + r.link.Render(string(n.Destination)) + ")")
		}

	case *ast.AutoLink:
		if entering {
			r.inline.WriteString(r.link.Render(string(n.URL(r.source))))
		}

	case *ast.FencedCodeBlock:
		if entering {
			r.renderCodeBlock(n)
			return ast.WalkSkipChildren, nil
		}

	case *ast.List:
		if entering {
			r.listDepth++
			start := 0
			if n.IsOrdered() {
				start = n.Start
			}
			r.ordinal = append(r.ordinal, start)
		} else {
			r.listDepth--
			r.ordinal = r.ordinal[:len(r.ordinal)-1]
			if r.listDepth == 0 {
				r.out.WriteString("\n")
			}
		}

	case *ast.ListItem:
		if entering {
			r.inline.Reset()
		} else {
			r.flushListItem()
		}

	case *ast.ThematicBreak:
		if entering {
			r.out.WriteString(strings.Repeat("-", r.width) + "\n\n")
		}
	}
	return ast.WalkContinue, nil
}

func (r *renderer) writeStyled(s string) {
	switch {
	case r.boldDepth > 0:
		r.inline.WriteString(r.bold.Render(s))
	case r.italicDepth > 0:
		r.inline.WriteString(r.italic.Render(s))
	default:
		r.inline.WriteString(s)
	}
}

func (r *renderer) flushParagraph() {
	if r.inline.Len() == 0 {
		return
	}
	// Inside a list item the ListItem handler owns the flush.
	if r.listDepth > 0 {
		return
	}
	r.out.WriteString(ansi.Wordwrap(r.inline.String(), r.width, " "))
	r.out.WriteString("\n\n")
	r.inline.Reset()
}

func (r *renderer) flushListItem() {
	indent := strings.Repeat("  ", r.listDepth-1)
	bullet := "• "
	if len(r.ordinal) > 0 && r.ordinal[len(r.ordinal)-1] > 0 {
		bullet = fmt.Sprintf("%d. ", r.ordinal[len(r.ordinal)-1])
		r.ordinal[len(r.ordinal)-1]++
	}
	wrapped := ansi.Wordwrap(r.inline.String(), r.width-len(indent)-len(bullet), " ")
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		if i == 0 {
			r.out.WriteString(indent + bullet + line + "\n")
		} else {
			r.out.WriteString(indent + strings.Repeat(" ", len(bullet)) + line + "\n")
		}
	}
	r.inline.Reset()
}

func (r *renderer) renderCodeBlock(n *ast.FencedCodeBlock) {
	var body strings.Builder
	for i := range n.Lines().Len() {
		line := n.Lines().At(i)
		body.Write(line.Value(r.source))
	}

	lang := string(n.Language(r.source))
	rendered := body.String()
	if r.color && lang != "" {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, rendered, lang, "terminal256", "monokai"); err == nil {
			rendered = highlighted.String()
		}
	}
	for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		r.out.WriteString("    " + line + "\n")
	}
	r.out.WriteString("\n")
}
