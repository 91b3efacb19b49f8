package index

import (
	"time"

	"github.com/whitfield/tome/internal/frontmatter"
	"github.com/whitfield/tome/internal/vault"
	"github.com/whitfield/tome/internal/wikilink"
)

// Asset is one tracked filesystem object. Pages carry parsed metadata;
// images and opaque files carry only identity and stat data.
type Asset struct {
	Path    string     `json:"path"`
	Kind    vault.Kind `json:"kind"`
	Title   string     `json:"title"`
	ModTime time.Time  `json:"modified_at"`
	Size    int64      `json:"size"`

	// Page fields. Frontmatter is nil for non-pages and for placeholder
	// assets whose frontmatter failed to parse.
	Frontmatter *frontmatter.Doc `json:"-"`
	Tags        []string         `json:"tags,omitempty"`
	Links       []Link           `json:"links,omitempty"`
	Embeds      []Embed          `json:"embeds,omitempty"`
	ParseError  string           `json:"parse_error,omitempty"`

	checksum string
}

// Link is a directed page-to-page edge with its resolution result.
type Link struct {
	Raw      wikilink.Link `json:"raw"`
	Resolved string        `json:"resolved,omitempty"`
}

// Embed is an image reference written with wikilink syntax.
type Embed struct {
	Target   string `json:"target"`
	Alt      string `json:"alt,omitempty"`
	Resolved string `json:"resolved,omitempty"`
}

// Backlink is one inbound link as seen from the target page.
type Backlink struct {
	Source string        `json:"source"`
	Link   wikilink.Link `json:"link"`
}

// Summary is the directory-listing view of an asset.
type Summary struct {
	Path    string     `json:"path"`
	Kind    vault.Kind `json:"kind"`
	Title   string     `json:"title"`
	ModTime time.Time  `json:"modified_at"`
	HasErr  bool       `json:"has_parse_error,omitempty"`
}

// TreeNode is one entry of the hierarchical vault tree.
type TreeNode struct {
	Path     string      `json:"path"`
	Name     string      `json:"name"`
	Kind     vault.Kind  `json:"kind"`
	Children []*TreeNode `json:"children,omitempty"`
}

// ParseFailure is one entry of the parse-error report.
type ParseFailure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// BrokenLink is one unresolved wikilink, reported with enough context to
// offer page creation.
type BrokenLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// BrokenImage is one image embed whose file could not be found.
type BrokenImage struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (a *Asset) summary() Summary {
	return Summary{
		Path:    a.Path,
		Kind:    a.Kind,
		Title:   a.Title,
		ModTime: a.ModTime,
		HasErr:  a.ParseError != "",
	}
}

// clone returns a copy safe to hand to readers outside the lock. Link and
// embed entries are copied because their Resolved fields are rewritten in
// place when relations update.
func (a *Asset) clone() *Asset {
	c := *a
	c.Links = append([]Link(nil), a.Links...)
	c.Embeds = append([]Embed(nil), a.Embeds...)
	c.Tags = append([]string(nil), a.Tags...)
	return &c
}
