package markdown

import (
	"strings"

	"github.com/whitfield/tome/internal/frontmatter"
)

// FieldView is one frontmatter entry with its value rendered for display,
// in document order.
type FieldView struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ImageView is one infobox image prepared for the frontend.
type ImageView struct {
	Src     string `json:"src"`
	Path    string `json:"path"`
	Caption string `json:"caption,omitempty"`
}

// RenderFrontmatter renders every scalar frontmatter value as inline
// Markdown (wikilinks included) and normalizes the image field into
// ready-to-serve image views. Non-string values pass through as parsed.
func (r *Renderer) RenderFrontmatter(doc *frontmatter.Doc) []FieldView {
	if doc == nil || doc.Empty() {
		return nil
	}
	out := make([]FieldView, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		switch f.Key {
		case "image":
			out = append(out, FieldView{Key: "images", Value: r.imageViews(doc)})
		case "layout":
			// Surfaced as the normalized rule list, not as a raw field.
		default:
			out = append(out, FieldView{Key: f.Key, Value: r.renderValue(f.Value)})
		}
	}
	return out
}

func (r *Renderer) renderValue(v any) any {
	switch t := v.(type) {
	case string:
		return r.RenderInline(t)
	case []any:
		rendered := make([]any, len(t))
		for i, item := range t {
			if s, ok := item.(string); ok {
				rendered[i] = r.RenderInline(s)
			} else {
				rendered[i] = item
			}
		}
		return rendered
	default:
		return v
	}
}

func (r *Renderer) imageViews(doc *frontmatter.Doc) []ImageView {
	refs := doc.Images()
	views := make([]ImageView, 0, len(refs))
	for _, ref := range refs {
		v := ImageView{Path: ref.Path, Caption: ref.Caption}
		switch {
		case strings.HasPrefix(ref.Path, "http://"), strings.HasPrefix(ref.Path, "https://"):
			v.Src = ref.Path
		default:
			if resolved := r.resolver.ResolveMedia(ref.Path); resolved != "" {
				v.Src = AssetURL(resolved)
				v.Path = resolved
			}
		}
		views = append(views, v)
	}
	return views
}
