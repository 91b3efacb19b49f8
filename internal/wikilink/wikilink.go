// Package wikilink holds the wikilink grammar shared by the renderer, the
// index, and the writer, so all three agree on what counts as a link.
package wikilink

import (
	"regexp"
	"strings"
)

// Link is one wikilink occurrence as written in a page body.
type Link struct {
	// Target is the trimmed page reference before any # or |.
	Target string
	// Section is the trimmed anchor after #, empty when absent.
	Section string
	// Alias is the trimmed display text after |, empty when absent.
	Alias string
}

// Pattern matches [[Target]], [[Target#Section]], [[Target|Alias]] and
// [[Target#Section|Alias]], with an optional backslash-escaped pipe so
// aliases survive inside Markdown table cells. A second # inside the
// construct fails the match and the text stays literal.
var Pattern = regexp.MustCompile(`\[\[([^\[\]|#\\]+)(?:#([^\[\]|#\\]+))?(?:\\?\|([^\[\]]+))?\]\]`)

// rewritePattern keeps section and alias (with their separators and any
// escaping) as one opaque tail so rewrites can splice in a new target
// without touching the rest of the construct.
var rewritePattern = regexp.MustCompile(`\[\[([^\[\]|#\\]+)((?:#[^\[\]|#\\]+)?(?:\\?\|[^\[\]]+)?)\]\]`)

// Parse extracts every wikilink from body, in document order. Duplicate
// links are kept; the index decides how to aggregate them.
func Parse(body string) []Link {
	matches := Pattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{
			Target:  strings.TrimSpace(m[1]),
			Section: strings.TrimSpace(m[2]),
			Alias:   strings.TrimSpace(m[3]),
		})
	}
	return links
}

// DisplayText returns what a reader sees for the link: the alias when
// present, the bare target otherwise.
func (l Link) DisplayText() string {
	if l.Alias != "" {
		return l.Alias
	}
	return l.Target
}

// Raw reconstructs the link text as it would be written in a page.
func (l Link) Raw() string {
	var b strings.Builder
	b.WriteString(l.Target)
	if l.Section != "" {
		b.WriteByte('#')
		b.WriteString(l.Section)
	}
	if l.Alias != "" {
		b.WriteByte('|')
		b.WriteString(l.Alias)
	}
	return b.String()
}

// RewriteTargets replaces every wikilink whose target is oldTarget with
// newTarget, preserving section, alias, escaping and surrounding text
// byte for byte. Targets are compared after whitespace trimming, the way
// resolution trims them.
func RewriteTargets(body, oldTarget, newTarget string) string {
	return rewritePattern.ReplaceAllStringFunc(body, func(match string) string {
		groups := rewritePattern.FindStringSubmatch(match)
		if strings.TrimSpace(groups[1]) != oldTarget {
			return match
		}
		return "[[" + newTarget + groups[2] + "]]"
	})
}

// StripMarkup replaces every wikilink in text with its display text. Used
// for heading anchors and ToC labels.
func StripMarkup(text string) string {
	return Pattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := Pattern.FindStringSubmatch(match)
		l := Link{
			Target: strings.TrimSpace(groups[1]),
			Alias:  strings.TrimSpace(groups[3]),
		}
		return l.DisplayText()
	})
}
