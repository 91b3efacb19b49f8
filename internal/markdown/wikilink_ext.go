package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/whitfield/tome/internal/wikilink"
)

// wikilinkNode is a parsed [[...]] construct.
type wikilinkNode struct {
	ast.BaseInline
	link wikilink.Link
}

var kindWikilink = ast.NewNodeKind("Wikilink")

func (n *wikilinkNode) Kind() ast.NodeKind { return kindWikilink }

func (n *wikilinkNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Target":  n.link.Target,
		"Section": n.link.Section,
		"Alias":   n.link.Alias,
	}, nil)
}

// Anchored form of the shared wikilink grammar, matched at the cursor.
var wikilinkAtStart = regexp.MustCompile(`^\[\[([^\[\]|#\\]+)(?:#([^\[\]|#\\]+))?(?:\\?\|([^\[\]]+))?\]\]`)

type wikilinkParser struct{}

var defaultWikilinkParser = &wikilinkParser{}

func (p *wikilinkParser) Trigger() []byte { return []byte{'['} }

func (p *wikilinkParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := wikilinkAtStart.FindSubmatch(line)
	if m == nil {
		return nil
	}
	block.Advance(len(m[0]))
	return &wikilinkNode{link: wikilink.Link{
		Target:  strings.TrimSpace(string(m[1])),
		Section: strings.TrimSpace(string(m[2])),
		Alias:   strings.TrimSpace(string(m[3])),
	}}
}

func (rc *renderContext) renderWikilink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*wikilinkNode)
	writeWikilinkAnchor(w, n.link, rc.r.resolver.ResolvePage(n.link.Target))
	return ast.WalkSkipChildren, nil
}

// writeWikilinkAnchor emits the anchor element both the inline renderer
// and the code block renderer share. A resolved link carries data-path;
// a broken one carries data-target so the UI can offer page creation.
func writeWikilinkAnchor(w writer, link wikilink.Link, resolved string) {
	href := "#"
	if link.Section != "" {
		href = "#" + slugify(link.Section)
	}
	display := string(util.EscapeHTML([]byte(link.DisplayText())))
	if resolved != "" {
		w.WriteString(`<a href="`)
		w.WriteString(href)
		w.WriteString(`" class="internal-link" data-path="`)
		w.WriteString(string(util.EscapeHTML([]byte(resolved))))
		w.WriteString(`">`)
		w.WriteString(display)
		w.WriteString(`</a>`)
		return
	}
	w.WriteString(`<a href="#" class="internal-link broken" data-target="`)
	w.WriteString(string(util.EscapeHTML([]byte(link.Target))))
	w.WriteString(`">`)
	w.WriteString(display)
	w.WriteString(`</a>`)
}

// writer is the subset of util.BufWriter and strings.Builder the anchor
// emitter needs.
type writer interface {
	WriteString(s string) (int, error)
}
