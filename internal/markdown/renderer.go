// Package markdown renders page bodies into sanitized HTML: wikilink
// resolution, spoilers, inserts, image embeds, and table-of-contents
// extraction, built on goldmark.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Resolver maps link and embed targets to vault paths. An empty string
// means the target is broken.
type Resolver interface {
	ResolvePage(target string) string
	ResolveMedia(target string) string
}

// Source provides frontmatter-stripped page bodies for inserts.
type Source interface {
	PageBody(path string) ([]byte, error)
}

// TocEntry is one table-of-contents row.
type TocEntry struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	Level  int    `json:"level"`
	ID     string `json:"id"`
}

// Result is a rendered page body, split around the position where the
// table of contents is injected (directly before the first heading).
type Result struct {
	HTMLBeforeToc string     `json:"html_before_toc"`
	HTMLAfterToc  string     `json:"html_after_toc"`
	Toc           []TocEntry `json:"toc"`
}

// Renderer turns Markdown into sanitized HTML. It is stateless and safe
// for concurrent use; per-render state lives in a renderContext.
type Renderer struct {
	resolver Resolver
	source   Source
	policy   *policy
}

// New creates a renderer over the given resolver and page source.
func New(resolver Resolver, source Source) *Renderer {
	return &Renderer{
		resolver: resolver,
		source:   source,
		policy:   newPolicy(),
	}
}

// renderContext carries per-render state: the chain of in-progress insert
// targets used for cycle detection.
type renderContext struct {
	r     *Renderer
	stack []string
}

func (rc *renderContext) inStack(p string) bool {
	for _, s := range rc.stack {
		if s == p {
			return true
		}
	}
	return false
}

// engine builds a goldmark instance wired with the custom syntax
// extensions bound to rc. Raw HTML passes through here; the sanitizer is
// the security boundary and runs last.
func (rc *renderContext) engine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Footnote,
			&customSyntax{rc: rc},
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// plainEngine is goldmark without the custom syntax; wikilinks and
// friends stay literal.
func plainEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Footnote,
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// RenderPage renders a frontmatter-stripped body. selfPath seeds the
// insert cycle detection so a page inserting itself is caught at depth
// one. The result HTML is image-rewritten and then sanitized.
func (r *Renderer) RenderPage(body []byte, selfPath string) (*Result, error) {
	rc := &renderContext{r: r}
	if selfPath != "" {
		rc.stack = append(rc.stack, selfPath)
	}
	md := rc.engine()
	doc := md.Parser().Parse(text.NewReader(body))
	toc := buildToc(doc, body)

	var before, after bytes.Buffer
	out := &before
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		if isHeading(child) {
			out = &after
		}
		if err := md.Renderer().Render(out, body, child); err != nil {
			return nil, fmt.Errorf("markdown: render: %w", err)
		}
	}

	return &Result{
		HTMLBeforeToc: r.finish(before.String()),
		HTMLAfterToc:  r.finish(after.String()),
		Toc:           toc,
	}, nil
}

// RenderPreview renders arbitrary Markdown the same way a stored page is
// rendered, without any page identity. Used for live preview.
func (r *Renderer) RenderPreview(body []byte) (*Result, error) {
	return r.RenderPage(body, "")
}

// RenderPlain renders standard Markdown only. Wikilink and insert syntax
// stays literal; used for static content such as help text.
func (r *Renderer) RenderPlain(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := plainEngine().Convert(body, &buf); err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return r.policy.sanitize(buf.String()), nil
}

// RenderInline renders a single-line fragment (a frontmatter value) with
// the full custom syntax, unwrapping the paragraph element goldmark puts
// around it.
func (r *Renderer) RenderInline(s string) string {
	rc := &renderContext{r: r}
	var buf bytes.Buffer
	if err := rc.engine().Convert([]byte(s), &buf); err != nil {
		return s
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return r.finish(out)
}

// finish applies the tail of the pipeline: image sources are rewritten to
// asset URLs first, then the whole fragment is sanitized. Sanitization
// must stay the final step.
func (r *Renderer) finish(h string) string {
	return r.policy.sanitize(r.rewriteImages(h))
}
