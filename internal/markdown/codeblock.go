package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"

	"github.com/whitfield/tome/internal/wikilink"
)

// renderCodeBlock replaces the stock renderer for fenced and indented
// code blocks: wikilinks inside them render as live links, since code
// blocks are often used for examples that reference pages. Inline code
// spans keep the default renderer and stay literal.
func (rc *renderContext) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<pre><code")
	if fcb, ok := node.(*ast.FencedCodeBlock); ok {
		if lang := fcb.Language(source); lang != nil {
			_, _ = w.WriteString(` class="language-`)
			_, _ = w.Write(util.EscapeHTML(lang))
			_, _ = w.WriteString(`"`)
		}
	}
	_ = w.WriteByte('>')
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		rc.writeCodeLine(w, line.Value(source))
	}
	return ast.WalkContinue, nil
}

// writeCodeLine escapes a code line while turning wikilink matches into
// anchors. Escaping runs per segment so the generated markup is not
// escaped itself.
func (rc *renderContext) writeCodeLine(w util.BufWriter, line []byte) {
	idxs := wikilink.Pattern.FindAllSubmatchIndex(line, -1)
	last := 0
	for _, m := range idxs {
		_, _ = w.Write(util.EscapeHTML(line[last:m[0]]))
		l := wikilink.Link{
			Target:  trimIndexGroup(line, m, 1),
			Section: trimIndexGroup(line, m, 2),
			Alias:   trimIndexGroup(line, m, 3),
		}
		writeWikilinkAnchor(w, l, rc.r.resolver.ResolvePage(l.Target))
		last = m[1]
	}
	_, _ = w.Write(util.EscapeHTML(line[last:]))
}

func trimIndexGroup(b []byte, m []int, group int) string {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 {
		return ""
	}
	return strings.TrimSpace(string(b[lo:hi]))
}
