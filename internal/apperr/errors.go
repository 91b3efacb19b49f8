// Package apperr defines the error taxonomy shared across Tome subsystems.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidPath marks a path that resolves outside the vault root or is
	// otherwise malformed. Security-relevant: never coerced, always surfaced.
	ErrInvalidPath = errors.New("invalid path")
	ErrNotADir     = errors.New("not a directory")
)

// ParseError reports structurally invalid frontmatter YAML. The owning asset
// is still indexed as a placeholder so the file stays navigable.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("frontmatter parse error: %v", e.Err)
	}
	return fmt.Sprintf("frontmatter parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a frontmatter mapping that defines the same key
// twice. This is a hard error rather than a silent overwrite.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate frontmatter key %q", e.Key)
}

// TransactionError reports a multi-step vault mutation that failed partway
// through. RolledBack records whether the filesystem was restored.
type TransactionError struct {
	Op         string
	Err        error
	RolledBack bool
}

func (e *TransactionError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("%s failed (rolled back): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed (rollback unsuccessful, index may be stale): %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
