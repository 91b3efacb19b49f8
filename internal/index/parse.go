package index

import (
	"fmt"
	"path"
	"strings"

	"github.com/whitfield/tome/internal/checksum"
	"github.com/whitfield/tome/internal/frontmatter"
	"github.com/whitfield/tome/internal/storage"
	"github.com/whitfield/tome/internal/vault"
	"github.com/whitfield/tome/internal/wikilink"
)

// maxPageSize caps how much of a file the parser will read. Larger files
// are indexed as placeholders so the vault stays navigable around them.
const maxPageSize = 10 << 20

// parseAsset builds an Asset from a storage entry. Pages are read and
// parsed; parse failures return a placeholder asset with ParseError set
// instead of an error, so one bad file never aborts a batch.
func parseAsset(store storage.Provider, entry storage.Entry) *Asset {
	a := &Asset{
		Path:    entry.Path,
		Kind:    entry.Kind,
		Title:   vault.Stem(entry.Path),
		ModTime: entry.ModTime,
		Size:    entry.Size,
	}
	if entry.Kind == vault.KindDirectory {
		a.Title = path.Base(entry.Path)
		return a
	}
	if entry.Kind != vault.KindPage {
		return a
	}

	if entry.Size > maxPageSize {
		a.ParseError = fmt.Sprintf("file exceeds %d byte limit", maxPageSize)
		return a
	}
	content, err := store.Read(entry.Path)
	if err != nil {
		a.ParseError = err.Error()
		return a
	}
	a.checksum = checksum.Sum(content)

	fm, body := frontmatter.Extract(content)
	doc, err := frontmatter.Parse(fm)
	if err != nil {
		a.ParseError = err.Error()
		return a
	}
	a.Frontmatter = doc
	a.Tags = doc.Tags()
	a.Links, a.Embeds = extractReferences(string(body))
	return a
}

// extractReferences splits wikilink matches in a body into page links and
// image embeds. A match directly preceded by '!' is an embed.
func extractReferences(body string) ([]Link, []Embed) {
	idxs := wikilink.Pattern.FindAllStringSubmatchIndex(body, -1)
	if len(idxs) == 0 {
		return nil, nil
	}
	var links []Link
	var embeds []Embed
	for _, m := range idxs {
		start := m[0]
		l := wikilink.Link{
			Target:  trimGroup(body, m, 1),
			Section: trimGroup(body, m, 2),
			Alias:   trimGroup(body, m, 3),
		}
		if start > 0 && body[start-1] == '!' {
			embeds = append(embeds, Embed{Target: l.Target, Alt: l.Alias})
			continue
		}
		links = append(links, Link{Raw: l})
	}
	return links, embeds
}

func trimGroup(s string, m []int, group int) string {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 {
		return ""
	}
	return strings.TrimSpace(s[lo:hi])
}
