// ABOUTME: Converts assistant markdown to plain text for pipes and one-shot output
// ABOUTME: Walks the goldmark AST and keeps text, list markers and code verbatim

package render

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Plain strips markdown formatting from src. Emphasis markers, heading
// hashes and fences are removed; list items keep a "- " or "N. " marker and
// links keep their destination in parentheses.
func Plain(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if !entering {
				return ast.WalkContinue, nil
			}
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}

		case *ast.String:
			if entering {
				b.Write(node.Value)
			}

		case *ast.AutoLink:
			if entering {
				b.Write(node.URL(source))
			}
			return ast.WalkSkipChildren, nil

		case *ast.Link:
			if !entering {
				dest := string(node.Destination)
				if dest != "" && dest != plainChildren(node, source) {
					fmt.Fprintf(&b, " (%s)", dest)
				}
			}

		case *ast.Image:
			if entering {
				b.WriteString(plainChildren(node, source))
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				if n.NextSibling() != nil {
					b.WriteByte('\n')
				}
			}
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil

		case *ast.ThematicBreak:
			if entering {
				b.WriteString("---\n")
				if n.NextSibling() != nil {
					b.WriteByte('\n')
				}
			}

		case *ast.ListItem:
			if entering {
				b.WriteString(strings.Repeat("  ", listDepth(node)))
				b.WriteString(itemMarker(node))
			}

		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			if entering {
				return ast.WalkContinue, nil
			}
			b.WriteByte('\n')
			if n.NextSibling() != nil && !insideList(n) {
				b.WriteByte('\n')
			}

		case *ast.List:
			if !entering && n.NextSibling() != nil && !insideList(n) {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimRight(b.String(), " \n")
}

// plainChildren concatenates the text beneath n.
func plainChildren(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func itemMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	idx := 0
	for s := item.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		idx++
	}
	return fmt.Sprintf("%d. ", list.Start+idx)
}

func listDepth(item *ast.ListItem) int {
	depth := 0
	for p := item.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.ListItem); ok {
			depth++
		}
	}
	return depth
}

func insideList(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.ListItem); ok {
			return true
		}
	}
	return false
}
