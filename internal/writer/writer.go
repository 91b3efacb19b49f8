// Package writer performs the mutating vault operations: create, save,
// rename, move, delete and duplicate. Every operation funnels its index
// update through the same batch path the watcher uses, and rename/move
// repairs the backlink graph in the same logical transaction.
package writer

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/whitfield/tome/internal/apperr"
	"github.com/whitfield/tome/internal/index"
	"github.com/whitfield/tome/internal/storage"
	"github.com/whitfield/tome/internal/vault"
	"github.com/whitfield/tome/internal/wikilink"
)

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// Writer owns all explicit vault mutations. The watcher will also see
// the resulting filesystem events, but the index is updated here
// synchronously so callers observe their own writes; the later watcher
// batch is absorbed by the checksum skip.
type Writer struct {
	store storage.Provider
	ix    *index.Index
	log   *slog.Logger
}

// New creates a writer over the given store and index.
func New(store storage.Provider, ix *index.Index, opts ...Option) *Writer {
	w := &Writer{
		store: store,
		ix:    ix,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// pageName strips a trailing .md extension from a user-chosen name.
// Only a literal markdown extension counts; embedded periods, as in
// "api.v1", are part of the name.
func pageName(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return name[:len(name)-len(filepath.Ext(name))]
	}
	return name
}

// CreatePage creates a new page under parentDir. templatePath, when
// non-empty, names an existing page whose raw content seeds the new one.
// Returns the vault-relative path of the created page.
func (w *Writer) CreatePage(parentDir, name, templatePath string) (string, error) {
	name = strings.TrimSpace(pageName(name))
	if name == "" {
		return "", fmt.Errorf("writer: create page: %w: empty name", apperr.ErrInvalidPath)
	}

	p := path.Join(parentDir, name+".md")
	if w.store.Exists(p) {
		return "", fmt.Errorf("writer: create page %s: %w", p, apperr.ErrAlreadyExists)
	}

	var content []byte
	if templatePath != "" {
		var err error
		content, err = w.store.Read(templatePath)
		if err != nil {
			return "", fmt.Errorf("writer: read template %s: %w", templatePath, err)
		}
	}

	if err := w.store.Write(p, content); err != nil {
		return "", err
	}
	w.ix.Apply([]index.Change{{Type: index.Created, Path: p}})
	w.log.Info("page created", "path", p, "template", templatePath)
	return p, nil
}

// CreateDirectory creates a new directory under parentDir.
func (w *Writer) CreateDirectory(parentDir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("writer: create directory: %w: empty name", apperr.ErrInvalidPath)
	}

	p := path.Join(parentDir, name)
	if w.store.Exists(p) {
		return "", fmt.Errorf("writer: create directory %s: %w", p, apperr.ErrAlreadyExists)
	}
	if err := w.store.MkdirAll(p); err != nil {
		return "", err
	}
	w.ix.Apply([]index.Change{{Type: index.Created, Path: p}})
	w.log.Info("directory created", "path", p)
	return p, nil
}

// SavePage writes new content for a page and updates the index. The
// page is created if it does not exist yet.
func (w *Writer) SavePage(p string, content []byte) error {
	if err := w.store.Write(p, content); err != nil {
		return err
	}
	w.ix.Apply([]index.Change{{Type: index.Modified, Path: p}})
	w.log.Info("page saved", "path", p, "bytes", len(content))
	return nil
}

// Rename gives the asset at p a new name in its current directory. For
// pages the backlink graph is repaired so existing wikilinks keep
// resolving, with alias text and escaping preserved byte for byte.
// Returns the new vault-relative path.
func (w *Writer) Rename(p, newName string) (string, error) {
	entry, err := w.store.Stat(p)
	if err != nil {
		return "", err
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return "", fmt.Errorf("writer: rename: %w: empty name", apperr.ErrInvalidPath)
	}
	if entry.Kind == vault.KindPage {
		newName = pageName(newName) + ".md"
	}

	newPath := path.Join(path.Dir(p), newName)
	if newPath == p {
		return p, nil
	}
	return w.relocate("rename", p, newPath, entry.Kind)
}

// Move relocates the asset at p into newParent, keeping its name.
// Backlink repair works the same way as for Rename.
func (w *Writer) Move(p, newParent string) (string, error) {
	entry, err := w.store.Stat(p)
	if err != nil {
		return "", err
	}

	newPath := path.Join(newParent, path.Base(p))
	if newPath == p {
		return p, nil
	}
	return w.relocate("move", p, newPath, entry.Kind)
}

// Delete removes the asset at p (directories recursively) and updates
// the index.
func (w *Writer) Delete(p string) error {
	if err := w.store.Delete(p); err != nil {
		return err
	}
	w.ix.Apply([]index.Change{{Type: index.Removed, Path: p}})
	w.log.Info("asset deleted", "path", p)
	return nil
}

// Duplicate copies the page at p next to itself under a "<name> Copy"
// style filename, picking the first free one. Returns the copy's path.
func (w *Writer) Duplicate(p string) (string, error) {
	entry, err := w.store.Stat(p)
	if err != nil {
		return "", err
	}
	if entry.Kind == vault.KindDirectory {
		return "", fmt.Errorf("writer: duplicate %s: %w: is a directory", p, apperr.ErrInvalidPath)
	}

	content, err := w.store.Read(p)
	if err != nil {
		return "", err
	}

	dir := path.Dir(p)
	ext := filepath.Ext(p)
	stem := vault.Stem(p)
	copyPath := path.Join(dir, stem+" Copy"+ext)
	for n := 2; w.store.Exists(copyPath); n++ {
		copyPath = path.Join(dir, fmt.Sprintf("%s Copy %d%s", stem, n, ext))
	}

	if err := w.store.Write(copyPath, content); err != nil {
		return "", err
	}
	w.ix.Apply([]index.Change{{Type: index.Created, Path: copyPath}})
	w.log.Info("asset duplicated", "path", p, "copy", copyPath)
	return copyPath, nil
}

// relocate is the shared rename/move transaction: collision check,
// filesystem move, backlink text repair, index batch. If repair fails
// after the move succeeded, sources already rewritten get their prior
// content back, the move is rolled back, and the partial failure
// surfaces as a TransactionError.
func (w *Writer) relocate(op, oldPath, newPath string, kind vault.Kind) (string, error) {
	if w.store.Exists(newPath) {
		return "", fmt.Errorf("writer: %s %s: %w", op, newPath, apperr.ErrAlreadyExists)
	}

	// Backlinks are captured before any mutation; the index still
	// describes the old location.
	backlinks := w.ix.Backlinks(oldPath)

	if err := w.store.Move(oldPath, newPath); err != nil {
		return "", err
	}

	repaired, err := w.repairBacklinks(oldPath, newPath, backlinks)
	if err != nil {
		restored := true
		for _, r := range repaired {
			if restoreErr := w.store.Write(r.path, r.prev); restoreErr != nil {
				restored = false
				w.log.Error("restore failed", "op", op, "path", r.path, "error", restoreErr)
			}
		}
		rollbackErr := w.store.Move(newPath, oldPath)
		if rollbackErr != nil {
			w.log.Error("rollback failed", "op", op, "path", oldPath, "error", rollbackErr)
		}
		return "", &apperr.TransactionError{Op: op, Err: err, RolledBack: restored && rollbackErr == nil}
	}

	changes := []index.Change{{Type: index.Renamed, Path: newPath, OldPath: oldPath}}
	if kind == vault.KindDirectory {
		// The batch needs every relocated child; a bare directory
		// rename only names the directory itself.
		entries, err := w.store.List(newPath)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			changes = append(changes, index.Change{Type: index.Created, Path: e.Path})
		}
	}
	for _, r := range repaired {
		changes = append(changes, index.Change{Type: index.Modified, Path: r.path})
	}
	w.ix.Apply(changes)
	w.log.Info("asset relocated", "op", op, "from", oldPath, "to", newPath, "repaired", len(repaired))
	return newPath, nil
}

// newTarget maps one raw link target that resolved to oldPath onto its
// equivalent form for newPath, keeping the style the author used.
func newTarget(oldRaw, oldPath, newPath string) string {
	switch oldRaw {
	case oldPath:
		return newPath
	case strings.TrimSuffix(oldPath, ".md"):
		return strings.TrimSuffix(newPath, ".md")
	default:
		return vault.Stem(newPath)
	}
}

// repairedSource is one backlink source whose text was rewritten,
// keeping the prior content so a failed transaction can put it back.
type repairedSource struct {
	path string
	prev []byte
}

// repairBacklinks rewrites every wikilink that resolved to oldPath so
// it resolves to newPath, source by source. Returns the sources whose
// content changed. A source that was the moved file itself is read and
// written at its new location.
func (w *Writer) repairBacklinks(oldPath, newPath string, backlinks []index.Backlink) ([]repairedSource, error) {
	targetsBySource := make(map[string]map[string]struct{})
	for _, bl := range backlinks {
		src := bl.Source
		if src == oldPath {
			src = newPath
		}
		if targetsBySource[src] == nil {
			targetsBySource[src] = make(map[string]struct{})
		}
		targetsBySource[src][bl.Link.Target] = struct{}{}
	}

	var repaired []repairedSource
	for src, targets := range targetsBySource {
		body, err := w.store.Read(src)
		if err != nil {
			return repaired, fmt.Errorf("repair %s: %w", src, err)
		}
		rewritten := string(body)
		for raw := range targets {
			rewritten = wikilink.RewriteTargets(rewritten, raw, newTarget(raw, oldPath, newPath))
		}
		if rewritten == string(body) {
			continue
		}
		if err := w.store.Write(src, []byte(rewritten)); err != nil {
			return repaired, fmt.Errorf("repair %s: %w", src, err)
		}
		repaired = append(repaired, repairedSource{path: src, prev: body})
	}
	return repaired, nil
}
