package index

import (
	"path"
	"sort"
	"strings"

	"github.com/whitfield/tome/internal/vault"
	"github.com/whitfield/tome/internal/wikilink"
)

// Relation maintenance. All functions here assume the write lock is held.
// The derived maps (tags, backlinks, broken, resolvers) are kept
// incrementally: every asset's contributions are registered on connect and
// removed on disconnect using the resolution results stored on the asset,
// so a batch never has to rebuild the whole graph.

func (ix *Index) addResolverEntry(a *Asset) {
	switch a.Kind {
	case vault.KindPage:
		ix.pageStems[a.Title] = insertSorted(ix.pageStems[a.Title], a.Path)
	case vault.KindImage:
		k := strings.ToLower(path.Base(a.Path))
		ix.media[k] = insertSorted(ix.media[k], a.Path)
	}
}

func (ix *Index) removeResolverEntry(a *Asset) {
	switch a.Kind {
	case vault.KindPage:
		ix.pageStems[a.Title] = removeSorted(ix.pageStems[a.Title], a.Path)
		if len(ix.pageStems[a.Title]) == 0 {
			delete(ix.pageStems, a.Title)
		}
	case vault.KindImage:
		k := strings.ToLower(path.Base(a.Path))
		ix.media[k] = removeSorted(ix.media[k], a.Path)
		if len(ix.media[k]) == 0 {
			delete(ix.media, k)
		}
	}
}

// connect resolves the asset's links and embeds against the current
// resolver state and registers its tag, backlink and broken-link
// contributions.
func (ix *Index) connect(a *Asset) {
	for i := range a.Links {
		l := &a.Links[i]
		l.Resolved = ix.resolvePageLocked(l.Raw.Target)
		if l.Resolved != "" {
			bySource := ix.backlinks[l.Resolved]
			if bySource == nil {
				bySource = make(map[string][]wikilink.Link)
				ix.backlinks[l.Resolved] = bySource
			}
			bySource[a.Path] = append(bySource[a.Path], l.Raw)
		} else {
			addToSet(ix.broken, l.Raw.Target, a.Path)
		}
	}
	for i := range a.Embeds {
		e := &a.Embeds[i]
		if isExternalURL(e.Target) {
			continue
		}
		e.Resolved = ix.resolveMediaLocked(e.Target)
		if e.Resolved == "" {
			addToSet(ix.brokenImg, e.Target, a.Path)
		}
	}
	for _, t := range a.Tags {
		addToSet(ix.tags, t, a.Path)
	}
}

// disconnect removes the contributions connect registered, using the
// resolution results recorded on the asset.
func (ix *Index) disconnect(a *Asset) {
	for i := range a.Links {
		l := &a.Links[i]
		if l.Resolved != "" {
			if bySource := ix.backlinks[l.Resolved]; bySource != nil {
				delete(bySource, a.Path)
				if len(bySource) == 0 {
					delete(ix.backlinks, l.Resolved)
				}
			}
			l.Resolved = ""
		} else {
			removeFromSet(ix.broken, l.Raw.Target, a.Path)
		}
	}
	for i := range a.Embeds {
		e := &a.Embeds[i]
		if e.Resolved == "" && !isExternalURL(e.Target) {
			removeFromSet(ix.brokenImg, e.Target, a.Path)
		}
		e.Resolved = ""
	}
	for _, t := range a.Tags {
		removeFromSet(ix.tags, t, a.Path)
	}
}

// affectedSources collects the pages whose link resolution may change when
// an asset appears or disappears at p: pages currently linking to any page
// sharing p's stem, and pages holding a broken link or embed that p could
// now satisfy.
func (ix *Index) affectedSources(p string, kind vault.Kind, into map[string]struct{}) {
	for source := range ix.backlinks[p] {
		into[source] = struct{}{}
	}
	switch kind {
	case vault.KindPage:
		stem := vault.Stem(p)
		for _, candidate := range ix.pageStems[stem] {
			for source := range ix.backlinks[candidate] {
				into[source] = struct{}{}
			}
		}
		for _, key := range []string{stem, p, strings.TrimSuffix(p, ".md")} {
			for source := range ix.broken[key] {
				into[source] = struct{}{}
			}
		}
	case vault.KindImage:
		base := strings.ToLower(path.Base(p))
		for target, sources := range ix.brokenImg {
			if target == p || strings.ToLower(path.Base(target)) == base {
				for source := range sources {
					into[source] = struct{}{}
				}
			}
		}
	}
}

func addToSet(m map[string]map[string]struct{}, key, member string) {
	set := m[key]
	if set == nil {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[member] = struct{}{}
}

func removeFromSet(m map[string]map[string]struct{}, key, member string) {
	if set := m[key]; set != nil {
		delete(set, member)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	if i < len(s) && s[i] == v {
		return append(s[:i], s[i+1:]...)
	}
	return s
}

func isExternalURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
