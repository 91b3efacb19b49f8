package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// customSyntax wires the vault-specific inline syntax into goldmark:
// wikilinks, image embeds, inserts, spoilers, and the code block renderer
// that keeps wikilinks live inside fenced and indented blocks.
type customSyntax struct {
	rc *renderContext
}

func (e *customSyntax) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		// Ahead of the built-in link parser so [[ is claimed first.
		util.Prioritized(defaultWikilinkParser, 150),
		util.Prioritized(defaultEmbedParser, 150),
		util.Prioritized(defaultInsertParser, 150),
		util.Prioritized(defaultSpoilerParser, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&nodeRenderer{rc: e.rc}, 500),
	))
}

// nodeRenderer renders the custom nodes and overrides the code block
// renderers.
type nodeRenderer struct {
	rc *renderContext
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindWikilink, r.rc.renderWikilink)
	reg.Register(kindEmbed, r.rc.renderEmbed)
	reg.Register(kindSpoiler, r.rc.renderSpoiler)
	reg.Register(kindInsert, r.rc.renderInsert)
	reg.Register(ast.KindFencedCodeBlock, r.rc.renderCodeBlock)
	reg.Register(ast.KindCodeBlock, r.rc.renderCodeBlock)
}
