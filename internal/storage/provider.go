// Package storage defines the vault file-system abstraction.
package storage

import (
	"time"

	"github.com/whitfield/tome/internal/vault"
)

// Entry is lightweight metadata for one tracked filesystem object.
type Entry struct {
	Path    string // vault-relative, forward slashes
	Kind    vault.Kind
	Size    int64
	ModTime time.Time
}

// Provider is the interface for vault file operations. All paths are
// vault-relative; implementations must reject anything escaping the root.
type Provider interface {
	// Root returns the canonical vault root.
	Root() *vault.Root
	// List walks dir recursively and returns every tracked file (pages,
	// images, opaque assets) plus directories. Hidden entries are skipped.
	List(dir string) ([]Entry, error)
	// Children returns the direct, non-recursive children of dir.
	Children(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file or directory (recursively) at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating the target's parent.
	Move(oldPath, newPath string) error
	// MkdirAll creates the directory at path and any missing parents.
	MkdirAll(path string) error
	// Stat returns metadata for path, or apperr.ErrNotFound.
	Stat(path string) (Entry, error)
	// Exists reports whether path exists inside the vault.
	Exists(path string) bool
}
