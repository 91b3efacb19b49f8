package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/whitfield/tome/internal/apperr"
	"github.com/whitfield/tome/internal/vault"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root *vault.Root
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(dir string) (*FS, error) {
	root, err := vault.NewRoot(dir)
	if err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

// Root returns the canonical vault root.
func (f *FS) Root() *vault.Root { return f.root }

func entryFor(rel string, info fs.FileInfo) Entry {
	kind := vault.Classify(rel)
	if info.IsDir() {
		kind = vault.KindDirectory
	}
	return Entry{
		Path:    rel,
		Kind:    kind,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// hidden reports whether a name should be excluded from listings.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// List walks dir (vault-relative) and returns every tracked entry under it.
func (f *FS) List(dir string) ([]Entry, error) {
	base, err := f.root.Abs(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if hidden(d.Name()) && p != base {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == base {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := f.root.Rel(p)
		if err != nil {
			return nil // symlink pointing outside the vault; skip
		}
		out = append(out, entryFor(rel, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Children returns the direct children of dir, hidden entries excluded.
func (f *FS) Children(dir string) ([]Entry, error) {
	base, err := f.root.Abs(dir)
	if err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: %s: %w", dir, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read dir: %w", err)
	}
	var out []Entry
	for _, e := range ents {
		if hidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, entryFor(path.Join(dir, e.Name()), info))
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.root.Abs(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: %s: %w", p, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename. A crash
// mid-write can never leave a half-written file at the destination.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.root.Abs(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tome-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file or directory (recursively) from the vault.
func (f *FS) Delete(p string) error {
	abs, err := f.root.Abs(p)
	if err != nil {
		return err
	}
	if abs == f.root.Path() {
		return fmt.Errorf("storage: refusing to delete vault root: %w", apperr.ErrInvalidPath)
	}
	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: %s: %w", p, apperr.ErrNotFound)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	return nil
}

// Move renames a file or directory within the vault.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.root.Abs(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.root.Abs(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

// MkdirAll creates the directory at p and any missing parents.
func (f *FS) MkdirAll(p string) error {
	abs, err := f.root.Abs(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", p, err)
	}
	return nil
}

// Stat returns metadata for p.
func (f *FS) Stat(p string) (Entry, error) {
	abs, err := f.root.Abs(p)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, fmt.Errorf("storage: %s: %w", p, apperr.ErrNotFound)
		}
		return Entry{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return entryFor(p, info), nil
}

// Exists reports whether p exists inside the vault.
func (f *FS) Exists(p string) bool {
	_, err := f.Stat(p)
	return err == nil
}
