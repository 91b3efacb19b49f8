package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// spoilerNode wraps inline content that stays hidden until interacted
// with: ||text||.
type spoilerNode struct {
	ast.BaseInline
}

var kindSpoiler = ast.NewNodeKind("Spoiler")

func (n *spoilerNode) Kind() ast.NodeKind { return kindSpoiler }

func (n *spoilerNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type spoilerDelimiterProcessor struct{}

func (p *spoilerDelimiterProcessor) IsDelimiter(b byte) bool { return b == '|' }

func (p *spoilerDelimiterProcessor) CanOpenCloser(opener, closer *parser.Delimiter) bool {
	return opener.Char == closer.Char
}

func (p *spoilerDelimiterProcessor) OnMatch(consumes int) ast.Node {
	return &spoilerNode{}
}

var defaultSpoilerDelimiterProcessor = &spoilerDelimiterProcessor{}

type spoilerParser struct{}

var defaultSpoilerParser = &spoilerParser{}

func (s *spoilerParser) Trigger() []byte { return []byte{'|'} }

func (s *spoilerParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	before := block.PrecendingCharacter()
	line, segment := block.PeekLine()
	node := parser.ScanDelimiter(line, before, 2, defaultSpoilerDelimiterProcessor)
	if node == nil || node.OriginalLength > 2 || before == '|' {
		return nil
	}
	node.Segment = segment.WithStop(segment.Start + node.Length)
	block.Advance(node.Length)
	pc.PushDelimiter(node)
	return node
}

func (s *spoilerParser) CloseBlock(parent ast.Node, pc parser.Context) {
	// nothing to do
}

func (rc *renderContext) renderSpoiler(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<span class="spoiler">`)
	} else {
		_, _ = w.WriteString(`</span>`)
	}
	return ast.WalkContinue, nil
}
