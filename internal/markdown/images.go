package markdown

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// AssetURLPrefix is where the HTTP layer serves vault image bytes from.
const AssetURLPrefix = "/assets/"

var imgTagPattern = regexp.MustCompile(`<img src="([^"]+)"([^>]*)>`)

// rewriteImages points every local img src at the asset endpoint. Network
// URLs pass through untouched; data URIs are left for the sanitizer to
// judge; a local source that resolves nowhere keeps its original tag so
// the UI shows a broken image instead of nothing.
func (r *Renderer) rewriteImages(h string) string {
	return imgTagPattern.ReplaceAllStringFunc(h, func(tag string) string {
		groups := imgTagPattern.FindStringSubmatch(tag)
		src, rest := groups[1], groups[2]
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") ||
			strings.HasPrefix(src, "data:") || strings.HasPrefix(src, AssetURLPrefix) {
			return tag
		}
		resolved := r.resolver.ResolveMedia(html.UnescapeString(src))
		if resolved == "" {
			return tag
		}
		return `<img src="` + AssetURL(resolved) + `"` + rest + `>`
	})
}

// AssetURL builds the serving URL for a vault-relative image path.
func AssetURL(rel string) string {
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return AssetURLPrefix + strings.Join(segs, "/")
}
