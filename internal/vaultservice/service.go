// Package vaultservice coordinates the vault subsystems behind one API
// used by both command surfaces: reads assemble index state with
// rendered content, mutations delegate to the writer, and the search
// index is kept current from index change events.
package vaultservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/whitfield/tome/internal/apperr"
	"github.com/whitfield/tome/internal/checksum"
	"github.com/whitfield/tome/internal/frontmatter"
	"github.com/whitfield/tome/internal/index"
	"github.com/whitfield/tome/internal/markdown"
	"github.com/whitfield/tome/internal/search"
	"github.com/whitfield/tome/internal/storage"
	"github.com/whitfield/tome/internal/vault"
	"github.com/whitfield/tome/internal/writer"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service is the vault facade. Safe for concurrent use; all shared
// state lives in the index, the search store and the filesystem.
type Service struct {
	store    storage.Provider
	ix       *index.Index
	renderer *markdown.Renderer
	search   *search.Index
	writer   *writer.Writer
	log      *slog.Logger
}

// NewService wires the service over its subsystems. search may be nil
// when full-text search is disabled. The service registers itself as an
// index subscriber, so create it before the initial Rebuild to have the
// search store seeded by the startup scan.
func NewService(store storage.Provider, ix *index.Index, srch *search.Index, w *writer.Writer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ix:     ix,
		search: srch,
		writer: w,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = markdown.New(ix, s)
	if srch != nil {
		ix.Subscribe(s.syncSearch)
	}
	return s
}

// PageBody returns the frontmatter-stripped body of the page at p. It
// is the content source for insert expansion.
func (s *Service) PageBody(p string) ([]byte, error) {
	raw, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	_, body := frontmatter.Extract(raw)
	return body, nil
}

// BacklinkView is one inbound link in a page view.
type BacklinkView struct {
	Source string `json:"source_path"`
	Alias  string `json:"alias,omitempty"`
}

// PageView is the full representation of a page: raw content alongside
// the rendered halves, table of contents, frontmatter and backlinks.
type PageView struct {
	Path        string                   `json:"path"`
	Title       string                   `json:"title"`
	RawContent  string                   `json:"raw_content"`
	Checksum    string                   `json:"checksum"`
	Rendered    *markdown.Result         `json:"rendered"`
	Frontmatter []markdown.FieldView     `json:"frontmatter"`
	Layout      []frontmatter.LayoutRule `json:"layout,omitempty"`
	Tags        []string                 `json:"tags"`
	Backlinks   []BacklinkView           `json:"backlinks"`
	ParseError  string                   `json:"parse_error,omitempty"`
	ModTime     time.Time                `json:"modified_at"`
}

// GetPage assembles the full view of the page at path.
func (s *Service) GetPage(_ context.Context, path string) (*PageView, error) {
	a, ok := s.ix.Get(path)
	if !ok || a.Kind != vault.KindPage {
		return nil, fmt.Errorf("vaultservice: page %s: %w", path, apperr.ErrNotFound)
	}
	raw, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	_, body := frontmatter.Extract(raw)
	rendered, err := s.renderer.RenderPage(body, path)
	if err != nil {
		return nil, err
	}

	view := &PageView{
		Path:        path,
		Title:       a.Title,
		RawContent:  string(raw),
		Checksum:    checksum.Sum(raw),
		Rendered:    rendered,
		Frontmatter: []markdown.FieldView{},
		Tags:        nonNilSlice(a.Tags),
		Backlinks:   []BacklinkView{},
		ParseError:  a.ParseError,
		ModTime:     a.ModTime,
	}
	if a.Frontmatter != nil {
		view.Frontmatter = s.renderer.RenderFrontmatter(a.Frontmatter)
		view.Layout = a.Frontmatter.Layout()
	}
	for _, bl := range s.ix.Backlinks(path) {
		view.Backlinks = append(view.Backlinks, BacklinkView{Source: bl.Source, Alias: bl.Link.Alias})
	}
	return view, nil
}

// RenderPreview renders arbitrary Markdown with the full vault syntax,
// without touching any page identity.
func (s *Service) RenderPreview(_ context.Context, content []byte) (*markdown.Result, error) {
	return s.renderer.RenderPreview(content)
}

// RenderMarkdown renders plain Markdown; wikilinks stay literal.
func (s *Service) RenderMarkdown(_ context.Context, content []byte) (string, error) {
	return s.renderer.RenderPlain(content)
}

// ResolveWikilink resolves a raw wikilink body to a page path, or ""
// when the target is broken.
func (s *Service) ResolveWikilink(raw string) string {
	return s.ix.Resolve(raw)
}

// ListDirectory returns the direct children of dir.
func (s *Service) ListDirectory(dir string) ([]index.Summary, error) {
	if dir != "" {
		a, ok := s.ix.Get(dir)
		if !ok || a.Kind != vault.KindDirectory {
			return nil, fmt.Errorf("vaultservice: directory %s: %w", dir, apperr.ErrNotFound)
		}
	}
	children := s.ix.Children(dir)
	if children == nil {
		children = []index.Summary{}
	}
	return children, nil
}

// Tree returns the full vault hierarchy.
func (s *Service) Tree() []*index.TreeNode { return s.ix.Tree() }

// AllTags returns every tag with its pages.
func (s *Service) AllTags() []index.TagInfo { return s.ix.AllTags() }

// PagesForTag returns the pages carrying tag.
func (s *Service) PagesForTag(tag string) []string { return s.ix.PagesForTag(tag) }

// Backlinks returns the inbound links of the page at path.
func (s *Service) Backlinks(path string) []BacklinkView {
	out := []BacklinkView{}
	for _, bl := range s.ix.Backlinks(path) {
		out = append(out, BacklinkView{Source: bl.Source, Alias: bl.Link.Alias})
	}
	return out
}

// ParseFailures reports pages indexed as placeholders.
func (s *Service) ParseFailures() []index.ParseFailure { return s.ix.ParseFailures() }

// BrokenLinks reports unresolved wikilinks.
func (s *Service) BrokenLinks() []index.BrokenLink { return s.ix.BrokenLinks() }

// BrokenImages reports unresolved image embeds.
func (s *Service) BrokenImages() []index.BrokenImage { return s.ix.BrokenImages() }

// Search runs a full-text query over page bodies, titles and tags.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	if s.search == nil {
		return []search.Result{}, nil
	}
	out, err := s.search.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []search.Result{}
	}
	return out, nil
}

// CreatePage creates a page under parentDir, optionally seeded from a
// template page.
func (s *Service) CreatePage(_ context.Context, parentDir, name, templatePath string) (string, error) {
	return s.writer.CreatePage(parentDir, name, templatePath)
}

// CreateDirectory creates a directory under parentDir.
func (s *Service) CreateDirectory(_ context.Context, parentDir, name string) (string, error) {
	return s.writer.CreateDirectory(parentDir, name)
}

// SavePage writes new page content. A non-empty ifMatch is compared
// against the current content checksum; a mismatch fails with
// ErrConflict and nothing is written.
func (s *Service) SavePage(_ context.Context, path string, content []byte, ifMatch string) error {
	if ifMatch != "" {
		existing, err := s.store.Read(path)
		if err != nil {
			return err
		}
		if checksum.Sum(existing) != ifMatch {
			return fmt.Errorf("vaultservice: save %s: %w", path, apperr.ErrConflict)
		}
	}
	return s.writer.SavePage(path, content)
}

// Rename gives the asset at path a new name in place.
func (s *Service) Rename(_ context.Context, path, newName string) (string, error) {
	return s.writer.Rename(path, newName)
}

// Move relocates the asset at path into newParent.
func (s *Service) Move(_ context.Context, path, newParent string) (string, error) {
	return s.writer.Move(path, newParent)
}

// Delete removes the asset at path.
func (s *Service) Delete(_ context.Context, path string) error {
	return s.writer.Delete(path)
}

// Duplicate copies the page at path next to itself.
func (s *Service) Duplicate(_ context.Context, path string) (string, error) {
	return s.writer.Duplicate(path)
}

// ReadAsset returns the raw bytes and content type of a non-directory
// asset, for byte streaming. The store rejects paths escaping the
// vault root.
func (s *Service) ReadAsset(path string) ([]byte, string, error) {
	entry, err := s.store.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if entry.Kind == vault.KindDirectory {
		return nil, "", fmt.Errorf("vaultservice: asset %s: %w", path, apperr.ErrNotFound)
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, "", err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return data, ct, nil
}

// syncSearch mirrors a committed index batch into the search store.
func (s *Service) syncSearch(ev index.Event) {
	for _, p := range ev.Paths {
		a, ok := s.ix.Get(p)
		if !ok || a.Kind != vault.KindPage {
			if err := s.search.Delete(p); err != nil {
				s.log.Warn("search delete failed", "path", p, "error", err)
			}
			continue
		}
		body, err := s.PageBody(p)
		if err != nil {
			s.log.Warn("search read failed", "path", p, "error", err)
			continue
		}
		doc := search.Document{Path: p, Title: a.Title, Body: string(body), Tags: a.Tags}
		if err := s.search.Upsert(doc); err != nil {
			s.log.Warn("search upsert failed", "path", p, "error", err)
		}
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
