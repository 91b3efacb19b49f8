package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// embedNode is a ![[image]] construct.
type embedNode struct {
	ast.BaseInline
	target string
	alt    string
}

var kindEmbed = ast.NewNodeKind("ImageEmbed")

func (n *embedNode) Kind() ast.NodeKind { return kindEmbed }

func (n *embedNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Target": n.target,
		"Alt":    n.alt,
	}, nil)
}

var embedAtStart = regexp.MustCompile(`^!\[\[([^\[\]|\\]+)(?:\\?\|([^\[\]]+))?\]\]`)

type embedParser struct{}

var defaultEmbedParser = &embedParser{}

func (p *embedParser) Trigger() []byte { return []byte{'!'} }

func (p *embedParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := embedAtStart.FindSubmatch(line)
	if m == nil {
		return nil
	}
	block.Advance(len(m[0]))
	n := &embedNode{
		target: strings.TrimSpace(string(m[1])),
		alt:    strings.TrimSpace(string(m[2])),
	}
	if n.alt == "" {
		n.alt = n.target
	}
	return n
}

// renderEmbed emits a plain img tag with the raw target as src. The image
// rewriting pass turns it into an asset URL afterwards, the same way it
// handles hand-written img tags.
func (rc *renderContext) renderEmbed(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*embedNode)
	_, _ = w.WriteString(`<img src="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.target)))
	_, _ = w.WriteString(`" alt="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.alt)))
	_, _ = w.WriteString(`">`)
	return ast.WalkSkipChildren, nil
}
