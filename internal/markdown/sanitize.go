package markdown

import "github.com/microcosm-cc/bluemonday"

// policy wraps the bluemonday allow-list every rendered fragment passes
// through as its final step. Only http(s) URLs and vault-relative asset
// paths survive in links; data URIs are permitted on images alone.
type policy struct {
	p *bluemonday.Policy
}

func newPolicy() *policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "b", "em", "i", "del", "s", "sub", "sup", "small", "kbd",
		"pre", "code", "blockquote",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tr", "th", "td",
		"figure", "figcaption", "img",
		"a", "span", "div", "button",
		"details", "summary", "abbr", "meter",
	)

	p.AllowAttrs("src", "alt", "width", "height", "class").OnElements("img")
	p.AllowAttrs("href", "title", "class", "data-path", "data-target").OnElements("a")
	p.AllowAttrs("class", "style").OnElements("span")
	p.AllowAttrs("style", "id").OnElements("p")
	p.AllowAttrs("class", "id").OnElements("div")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").OnElements("code", "pre", "button")
	p.AllowAttrs("align", "valign", "width").OnElements("th", "td")
	p.AllowAttrs("border", "align", "width", "cellspacing", "cellpadding", "class").OnElements("table")
	p.AllowAttrs("open").OnElements("details")
	p.AllowAttrs("title").OnElements("abbr")
	p.AllowAttrs("value", "min", "max").OnElements("meter")

	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.AllowDataURIImages()

	return &policy{p: p}
}

func (s *policy) sanitize(h string) string {
	return s.p.Sanitize(h)
}
