package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/whitfield/tome/internal/vault"
)

// insertNode is a {{insert: Page | title="..." | hidden}} transclusion.
type insertNode struct {
	ast.BaseInline
	target     string
	title      string
	hidden     bool
	centered   bool
	borderless bool
}

var kindInsert = ast.NewNodeKind("Insert")

func (n *insertNode) Kind() ast.NodeKind { return kindInsert }

func (n *insertNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Target": n.target}, nil)
}

var (
	insertAtStart = regexp.MustCompile(`^\{\{\s*insert:\s*([^|{}]*?)\s*((?:\|[^{}]*?)?)\s*\}\}`)
	insertTitle   = regexp.MustCompile(`^title\s*=\s*(?:"([^"]*)"|'([^']*)')$`)
)

type insertParser struct{}

var defaultInsertParser = &insertParser{}

func (p *insertParser) Trigger() []byte { return []byte{'{'} }

func (p *insertParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := insertAtStart.FindSubmatch(line)
	if m == nil {
		return nil
	}
	target := strings.TrimSpace(string(m[1]))
	if target == "" {
		return nil
	}
	block.Advance(len(m[0]))

	n := &insertNode{target: target}
	for _, attr := range strings.Split(strings.TrimPrefix(string(m[2]), "|"), "|") {
		part := strings.TrimSpace(attr)
		switch {
		case part == "hidden":
			n.hidden = true
		case part == "centered":
			n.centered = true
		case part == "borderless":
			n.borderless = true
		default:
			if tm := insertTitle.FindStringSubmatch(part); tm != nil {
				if tm[1] != "" {
					n.title = tm[1]
				} else {
					n.title = tm[2]
				}
			}
		}
	}
	return n
}

// renderInsert transcludes the target page. The rendering stack tracks
// every in-progress insert target; a target already on the stack is a
// cycle and renders an error box instead of recursing.
func (rc *renderContext) renderInsert(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*insertNode)

	resolved := rc.r.resolver.ResolvePage(n.target)
	if resolved == "" {
		writeErrorBox(w, "Insert not found: "+n.target)
		return ast.WalkSkipChildren, nil
	}
	if rc.inStack(resolved) {
		writeErrorBox(w, "Circular insert: "+resolved)
		return ast.WalkSkipChildren, nil
	}
	body, err := rc.r.source.PageBody(resolved)
	if err != nil {
		writeErrorBox(w, "Could not read insert: "+resolved)
		return ast.WalkSkipChildren, nil
	}

	rc.stack = append(rc.stack, resolved)
	var inner bytes.Buffer
	convErr := rc.engine().Convert(body, &inner)
	rc.stack = rc.stack[:len(rc.stack)-1]
	if convErr != nil {
		writeErrorBox(w, "Could not render insert: "+resolved)
		return ast.WalkSkipChildren, nil
	}

	if n.borderless {
		_, _ = w.Write(inner.Bytes())
		return ast.WalkSkipChildren, nil
	}

	title := n.title
	if title == "" {
		title = vault.Stem(resolved)
	}
	containerClass := "insert-container"
	buttonText := "[hide]"
	if n.hidden {
		containerClass = "insert-container collapsed"
		buttonText = "[show]"
	}
	titleClass := "insert-title-wrapper"
	if n.centered {
		titleClass = "insert-title-wrapper centered"
	}

	_, _ = w.WriteString(`<div class="` + containerClass + `">`)
	_, _ = w.WriteString(`<div class="insert-header">`)
	_, _ = w.WriteString(`<span class="` + titleClass + `"><span>`)
	_, _ = w.Write(util.EscapeHTML([]byte(title)))
	_, _ = w.WriteString(`</span></span>`)
	_, _ = w.WriteString(`<button class="insert-toggle">` + buttonText + `</button>`)
	_, _ = w.WriteString(`</div><div class="insert-content">`)
	_, _ = w.Write(inner.Bytes())
	_, _ = w.WriteString(`</div></div>`)
	return ast.WalkSkipChildren, nil
}

func writeErrorBox(w util.BufWriter, msg string) {
	_, _ = w.WriteString(`<div class="error-box">`)
	_, _ = w.Write(util.EscapeHTML([]byte(msg)))
	_, _ = w.WriteString(`</div>`)
}
