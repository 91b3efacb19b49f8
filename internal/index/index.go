// Package index maintains the in-memory model of the vault: every page,
// image and directory, the tag index, and the link graph with backlinks.
//
// The index is a pure cache over the filesystem. It is rebuilt from a full
// scan at startup and mutated afterwards only through Apply, which the
// writer and the watcher both funnel into. Readers take a shared lock and
// never observe a partially applied batch.
package index

import (
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/whitfield/tome/internal/storage"
	"github.com/whitfield/tome/internal/vault"
	"github.com/whitfield/tome/internal/wikilink"
)

// Event describes one applied mutation batch.
type Event struct {
	// Paths lists every vault-relative path the batch touched.
	Paths []string
}

// Hook receives index events after a batch commits. Hooks run outside the
// index lock and must not call back into mutating methods.
type Hook func(Event)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for scan and apply diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(ix *Index) { ix.log = log }
}

// Index is the in-memory vault database.
type Index struct {
	store storage.Provider
	log   *slog.Logger

	mu        sync.RWMutex
	assets    map[string]*Asset
	tags      map[string]map[string]struct{}            // tag -> page paths
	backlinks map[string]map[string][]wikilink.Link     // target path -> source path -> links
	broken    map[string]map[string]struct{}            // raw target -> source paths
	brokenImg map[string]map[string]struct{}            // raw embed target -> source paths
	pageStems map[string][]string                       // stem -> sorted candidate paths
	media     map[string][]string                       // lowercase filename -> sorted candidate paths

	hookMu sync.Mutex
	hooks  []Hook
}

// New creates an empty index over the given store. Populate it with
// Rebuild before serving reads.
func New(store storage.Provider, opts ...Option) *Index {
	ix := &Index{
		store: store,
		log:   slog.Default(),
	}
	ix.reset()
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func (ix *Index) reset() {
	ix.assets = make(map[string]*Asset)
	ix.tags = make(map[string]map[string]struct{})
	ix.backlinks = make(map[string]map[string][]wikilink.Link)
	ix.broken = make(map[string]map[string]struct{})
	ix.brokenImg = make(map[string]map[string]struct{})
	ix.pageStems = make(map[string][]string)
	ix.media = make(map[string][]string)
}

// Subscribe registers a hook called after every committed batch.
func (ix *Index) Subscribe(h Hook) {
	ix.hookMu.Lock()
	defer ix.hookMu.Unlock()
	ix.hooks = append(ix.hooks, h)
}

func (ix *Index) notify(paths []string) {
	if len(paths) == 0 {
		return
	}
	ix.hookMu.Lock()
	hooks := make([]Hook, len(ix.hooks))
	copy(hooks, ix.hooks)
	ix.hookMu.Unlock()
	ev := Event{Paths: paths}
	for _, h := range hooks {
		h(ev)
	}
}

// Get returns a copy of the asset at path.
func (ix *Index) Get(p string) (*Asset, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	a, ok := ix.assets[p]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// Len returns the number of tracked assets.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.assets)
}

// Children lists the direct children of dir, name-sorted with directories
// first.
func (ix *Index) Children(dir string) []Summary {
	dir = strings.Trim(dir, "/")
	ix.mu.RLock()
	var out []Summary
	for p, a := range ix.assets {
		if parentDir(p) == dir {
			out = append(out, a.summary())
		}
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Kind == vault.KindDirectory) != (out[j].Kind == vault.KindDirectory) {
			return out[i].Kind == vault.KindDirectory
		}
		return treeLess(path.Base(out[i].Path), path.Base(out[j].Path))
	})
	return out
}

// Tree returns the full vault hierarchy. Directories sort before files;
// underscore-prefixed names are pinned first; the rest is case-insensitive
// name order.
func (ix *Index) Tree() []*TreeNode {
	ix.mu.RLock()
	nodes := make(map[string]*TreeNode, len(ix.assets))
	for p, a := range ix.assets {
		nodes[p] = &TreeNode{Path: p, Name: path.Base(p), Kind: a.Kind}
	}
	ix.mu.RUnlock()

	var roots []*TreeNode
	for p, n := range nodes {
		if parent, ok := nodes[parentDir(p)]; ok {
			parent.Children = append(parent.Children, n)
		} else {
			roots = append(roots, n)
		}
	}
	var sortNodes func(ns []*TreeNode)
	sortNodes = func(ns []*TreeNode) {
		sort.Slice(ns, func(i, j int) bool {
			if (ns[i].Kind == vault.KindDirectory) != (ns[j].Kind == vault.KindDirectory) {
				return ns[i].Kind == vault.KindDirectory
			}
			return treeLess(ns[i].Name, ns[j].Name)
		})
		for _, n := range ns {
			sortNodes(n.Children)
		}
	}
	sortNodes(roots)
	return roots
}

// treeLess pins underscore-prefixed names first, then compares
// case-insensitively.
func treeLess(a, b string) bool {
	ap := strings.HasPrefix(a, "_")
	bp := strings.HasPrefix(b, "_")
	if ap != bp {
		return ap
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// PagesForTag returns the sorted paths of pages carrying tag.
func (ix *Index) PagesForTag(tag string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedKeys(ix.tags[tag])
}

// TagInfo pairs a tag with the pages that carry it.
type TagInfo struct {
	Name  string   `json:"name"`
	Pages []string `json:"pages"`
}

// AllTags returns every tag with its pages, tag-sorted.
func (ix *Index) AllTags() []TagInfo {
	ix.mu.RLock()
	out := make([]TagInfo, 0, len(ix.tags))
	for t, pages := range ix.tags {
		out = append(out, TagInfo{Name: t, Pages: sortedKeys(pages)})
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Backlinks returns the inbound links of the page at p, source-sorted.
func (ix *Index) Backlinks(p string) []Backlink {
	ix.mu.RLock()
	var out []Backlink
	for source, links := range ix.backlinks[p] {
		for _, l := range links {
			out = append(out, Backlink{Source: source, Link: l})
		}
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Link.Raw() < out[j].Link.Raw()
	})
	return out
}

// ResolvePage maps a wikilink target to a page path, or "" when the target
// is broken. Matching is case-sensitive by filename stem first, then by
// vault-relative path with or without the .md extension.
func (ix *Index) ResolvePage(target string) string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.resolvePageLocked(target)
}

// ResolveMedia maps an embed target to an image path, or "". Matching is
// by exact path first, then case-insensitive filename.
func (ix *Index) ResolveMedia(target string) string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.resolveMediaLocked(target)
}

// Resolve accepts a full raw wikilink body ("Target#Section|Alias" or any
// prefix of it) and resolves the target part.
func (ix *Index) Resolve(raw string) string {
	links := wikilink.Parse("[[" + raw + "]]")
	if len(links) == 0 {
		return ix.ResolvePage(strings.TrimSpace(raw))
	}
	return ix.ResolvePage(links[0].Target)
}

func (ix *Index) resolvePageLocked(target string) string {
	if c := ix.pageStems[target]; len(c) > 0 {
		return c[0]
	}
	if a, ok := ix.assets[target]; ok && a.Kind == vault.KindPage {
		return target
	}
	withExt := target + ".md"
	if a, ok := ix.assets[withExt]; ok && a.Kind == vault.KindPage {
		return withExt
	}
	return ""
}

func (ix *Index) resolveMediaLocked(target string) string {
	if a, ok := ix.assets[target]; ok && a.Kind != vault.KindDirectory {
		return target
	}
	if c := ix.media[strings.ToLower(path.Base(target))]; len(c) > 0 {
		return c[0]
	}
	return ""
}

// ParseFailures reports every placeholder asset, path-sorted.
func (ix *Index) ParseFailures() []ParseFailure {
	ix.mu.RLock()
	var out []ParseFailure
	for p, a := range ix.assets {
		if a.ParseError != "" {
			out = append(out, ParseFailure{Path: p, Message: a.ParseError})
		}
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// BrokenLinks reports every unresolved wikilink.
func (ix *Index) BrokenLinks() []BrokenLink {
	ix.mu.RLock()
	var out []BrokenLink
	for target, sources := range ix.broken {
		for source := range sources {
			out = append(out, BrokenLink{Source: source, Target: target})
		}
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// BrokenImages reports every embed whose file could not be found.
func (ix *Index) BrokenImages() []BrokenImage {
	ix.mu.RLock()
	var out []BrokenImage
	for target, sources := range ix.brokenImg {
		for source := range sources {
			out = append(out, BrokenImage{Source: source, Target: target})
		}
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
