package record

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
)

// CleanMarkdown flattens a Markdown summary into plain text for indexing
// Headings, paragraphs and list items become separate lines; inline code is kept
// verbatim because summaries usually name identifiers; fenced blocks, images and
// raw HTML are dropped.
func CleanMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	doc := markdown.Parse([]byte(md), nil)

	var buf bytes.Buffer
	ast.Walk(doc, &summaryText{buf: &buf})

	lines := strings.Split(buf.String(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// summaryText collects the text of a Markdown AST
type summaryText struct {
	buf *bytes.Buffer
}

func (s *summaryText) Visit(node ast.Node, entering bool) ast.WalkStatus {
	switch n := node.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.List:
		if !entering {
			s.buf.WriteByte('\n')
		}

	case *ast.ListItem:
		if entering {
			s.buf.WriteString("\n- ")
		}

	case *ast.Text:
		if entering {
			s.buf.Write(n.Literal)
		}

	case *ast.Code:
		if entering {
			s.buf.Write(n.Literal)
		}

	case *ast.Softbreak, *ast.Hardbreak:
		s.buf.WriteByte(' ')

	case *ast.CodeBlock, *ast.Image, *ast.HTMLBlock, *ast.HTMLSpan:
		return ast.SkipChildren
	}

	return ast.GoToNext
}
