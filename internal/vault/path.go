// Package vault models vault paths: canonical roots, vault-relative
// identifiers, and asset-kind classification.
//
// All identifiers handed to other packages are vault-relative and use
// forward slashes regardless of host OS. The vault root is canonicalized
// (symlinks resolved) once at construction so two on-disk spellings of the
// same file never produce distinct identifiers.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/whitfield/tome/internal/apperr"
)

// Kind classifies a tracked filesystem object.
type Kind int

const (
	// KindOpaque is any tracked file that is neither a page nor an image.
	// Opaque assets exist for broken-link detection but are never rendered.
	KindOpaque Kind = iota
	KindPage
	KindImage
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindImage:
		return "image"
	case KindDirectory:
		return "directory"
	default:
		return "opaque"
	}
}

// imageExts is the fixed allow-list of image extensions.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// IsPage reports whether name has a Markdown extension.
func IsPage(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".md")
}

// IsImage reports whether name has an allow-listed image extension.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Classify returns the Kind for a file name. Directories are classified by
// the caller (a name alone cannot tell).
func Classify(name string) Kind {
	switch {
	case IsPage(name):
		return KindPage
	case IsImage(name):
		return KindImage
	default:
		return KindOpaque
	}
}

// Stem returns the file name with only its final extension stripped.
// Embedded periods are literal name content: Stem("api.v1.md") == "api.v1".
func Stem(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Root is a canonicalized absolute vault root directory.
type Root struct {
	abs string
}

// NewRoot canonicalizes dir (resolving symlinks) and verifies it is a
// directory.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: canonicalize root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: %s: %w", dir, apperr.ErrNotADir)
	}
	return &Root{abs: resolved}, nil
}

// Path returns the canonical absolute root path.
func (r *Root) Path() string { return r.abs }

// Abs maps a vault-relative identifier to the absolute filesystem path for
// I/O. It rejects identifiers that escape the root with ErrInvalidPath,
// never clamping them.
func (r *Root) Abs(rel string) (string, error) {
	if rel == "" || rel == "." {
		return r.abs, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute identifier %q: %w", rel, apperr.ErrInvalidPath)
	}
	joined := filepath.Join(r.abs, cleaned)
	if !strings.HasPrefix(joined, r.abs+string(os.PathSeparator)) && joined != r.abs {
		return "", fmt.Errorf("vault: %q escapes vault root: %w", rel, apperr.ErrInvalidPath)
	}
	return joined, nil
}

// Rel maps an absolute filesystem path believed to be inside the vault to
// its canonical vault-relative identifier (forward slashes). Symlinked
// spellings of in-vault paths are resolved before comparison. Paths outside
// the root fail with ErrInvalidPath.
func (r *Root) Rel(abs string) (string, error) {
	if !filepath.IsAbs(abs) {
		return "", fmt.Errorf("vault: %q is not absolute: %w", abs, apperr.ErrInvalidPath)
	}
	resolved := r.canonicalize(abs)
	rel, err := filepath.Rel(r.abs, resolved)
	if err != nil {
		return "", fmt.Errorf("vault: relativize %s: %w", abs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("vault: %q outside vault root: %w", abs, apperr.ErrInvalidPath)
	}
	return filepath.ToSlash(rel), nil
}

// canonicalize resolves symlinks where possible. The full path may not exist
// yet (e.g. the target of a pending rename), in which case the deepest
// existing ancestor is resolved and the remainder re-joined.
func (r *Root) canonicalize(abs string) string {
	cleaned := filepath.Clean(abs)
	if resolved, err := filepath.EvalSymlinks(cleaned); err == nil {
		return resolved
	}
	dir, base := filepath.Split(cleaned)
	dir = filepath.Clean(dir)
	if dir == cleaned {
		return cleaned
	}
	return filepath.Join(r.canonicalize(dir), base)
}

// Contains reports whether the absolute path lies inside the vault root
// after canonicalization.
func (r *Root) Contains(abs string) bool {
	_, err := r.Rel(abs)
	return err == nil
}
