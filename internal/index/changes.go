package index

import (
	"sort"
	"strings"

	"github.com/whitfield/tome/internal/vault"
)

// ChangeType classifies one logical filesystem change.
type ChangeType int

const (
	Created ChangeType = iota
	Modified
	Removed
	Renamed
)

func (t ChangeType) String() string {
	switch t {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	}
	return "unknown"
}

// Change is one logical mutation of the vault. For renames, Path is the
// new location and OldPath the previous one.
type Change struct {
	Type    ChangeType
	Path    string
	OldPath string
}

// Apply commits a batch of changes. The batch is coalesced to its net
// effect per path, parsed outside the lock, then applied as one unit, so
// any permutation of the same batch converges to the same state and a
// reader never observes it half applied. Returns the touched paths.
func (ix *Index) Apply(changes []Change) []string {
	if len(changes) == 0 {
		return nil
	}

	// Net effect: does the path exist after the whole batch?
	final := make(map[string]bool, len(changes))
	for _, c := range changes {
		switch c.Type {
		case Removed:
			final[c.Path] = false
		case Renamed:
			if c.OldPath != "" {
				final[c.OldPath] = false
			}
			final[c.Path] = true
		default:
			final[c.Path] = true
		}
	}

	// Disk I/O happens outside the lock. A path that fails to stat is
	// treated as removed; the event raced a deletion.
	parsed := make(map[string]*Asset)
	for p, exists := range final {
		if !exists {
			continue
		}
		entry, err := ix.store.Stat(p)
		if err != nil {
			final[p] = false
			continue
		}
		parsed[p] = parseAsset(ix.store, entry)
	}

	ix.mu.Lock()

	// A removed directory takes everything under it along.
	var extra []string
	for p, exists := range final {
		if exists {
			continue
		}
		if a, ok := ix.assets[p]; ok && a.Kind == vault.KindDirectory {
			prefix := p + "/"
			for cp := range ix.assets {
				if strings.HasPrefix(cp, prefix) {
					if _, seen := final[cp]; !seen {
						extra = append(extra, cp)
					}
				}
			}
		}
	}
	for _, p := range extra {
		final[p] = false
	}

	// Pages whose resolution may shift, collected before the resolver
	// state changes.
	affected := make(map[string]struct{})
	for p := range final {
		kind := vault.Classify(p)
		if a, ok := ix.assets[p]; ok {
			kind = a.Kind
		} else if na, ok := parsed[p]; ok {
			kind = na.Kind
		}
		ix.affectedSources(p, kind, affected)
	}

	var touched []string
	for p, exists := range final {
		if exists {
			continue
		}
		if old, ok := ix.assets[p]; ok {
			ix.disconnect(old)
			ix.removeResolverEntry(old)
			delete(ix.assets, p)
			touched = append(touched, p)
		}
		delete(affected, p)
	}

	for p, a := range parsed {
		if !final[p] {
			continue
		}
		old := ix.assets[p]
		if old != nil && old.checksum != "" && old.checksum == a.checksum && old.Kind == a.Kind {
			// Spurious event; content unchanged.
			old.ModTime, old.Size = a.ModTime, a.Size
			continue
		}
		if old != nil {
			ix.disconnect(old)
			ix.removeResolverEntry(old)
		}
		ix.assets[p] = a
		ix.addResolverEntry(a)
		affected[p] = struct{}{}
		touched = append(touched, p)
	}

	for p := range affected {
		a := ix.assets[p]
		if a == nil || a.Kind != vault.KindPage {
			continue
		}
		ix.disconnect(a)
		ix.connect(a)
	}

	ix.mu.Unlock()

	sort.Strings(touched)
	if len(touched) > 0 {
		ix.log.Debug("index batch applied", "changes", len(changes), "touched", len(touched))
		ix.notify(touched)
	}
	return touched
}
