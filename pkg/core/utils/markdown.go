package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ValidateMarkdown checks if the string is valid Markdown using Goldmark.
// Goldmark is very permissive, so this only rejects empty documents.
func ValidateMarkdown(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	parser := goldmark.DefaultParser()
	reader := text.NewReader([]byte(input))
	doc := parser.Parse(reader)
	return doc != nil && doc.HasChildren()
}

// MarkdownHeadings returns the text of every heading in document order.
func MarkdownHeadings(input string) []string {
	source := []byte(input)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var headings []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		headings = append(headings, strings.TrimSpace(sb.String()))
		return ast.WalkSkipChildren, nil
	})
	return headings
}
