package markdown

import (
	"strconv"
	"strings"

	slug "github.com/goliatone/go-slug"
	"github.com/yuin/goldmark/ast"
)

func isHeading(n ast.Node) bool {
	_, ok := n.(*ast.Heading)
	return ok
}

// buildToc walks the document's headings, assigns each a hierarchical
// number and a unique slug id, and stamps the id onto the heading node so
// the HTML renderer emits matching anchors. Wikilink syntax in heading
// text is reduced to its display text before slugging.
func buildToc(doc ast.Node, source []byte) []TocEntry {
	var toc []TocEntry
	var counters [6]int
	seen := make(map[string]struct{})

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		counters[h.Level-1]++
		for i := h.Level; i < len(counters); i++ {
			counters[i] = 0
		}
		var parts []string
		for _, c := range counters[:h.Level] {
			if c > 0 {
				parts = append(parts, strconv.Itoa(c))
			}
		}

		display := headingText(h, source)
		base := slugify(display)
		id := base
		for i := 1; ; i++ {
			if _, dup := seen[id]; !dup {
				break
			}
			id = base + "-" + strconv.Itoa(i)
		}
		seen[id] = struct{}{}
		h.SetAttributeString("id", []byte(id))

		toc = append(toc, TocEntry{
			Number: strings.Join(parts, "."),
			Text:   display,
			Level:  h.Level,
			ID:     id,
		})
		return ast.WalkSkipChildren, nil
	})
	return toc
}

func headingText(h *ast.Heading, source []byte) string {
	var b strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		collectText(c, source, &b)
	}
	return strings.TrimSpace(b.String())
}

func collectText(n ast.Node, source []byte, b *strings.Builder) {
	switch t := n.(type) {
	case *wikilinkNode:
		b.WriteString(t.link.DisplayText())
	case *ast.Text:
		b.Write(t.Segment.Value(source))
	case *ast.String:
		b.Write(t.Value)
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			collectText(c, source, b)
		}
	}
}

// slugify builds a stable, URL-friendly anchor id from heading text.
func slugify(s string) string {
	v, err := slug.Normalize(s)
	if err != nil || v == "" {
		return "section"
	}
	return v
}
