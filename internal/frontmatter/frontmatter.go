// Package frontmatter parses the YAML metadata block at the top of a page.
//
// Parsing is strict about duplicate keys and preserves insertion order, but
// stays pure: inline rendering and sanitization of values happens in the
// markdown package.
package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/whitfield/tome/internal/apperr"
)

// Field is one top-level frontmatter entry, in document order.
type Field struct {
	Key   string
	Value any
}

// Doc is a parsed frontmatter block.
type Doc struct {
	Fields []Field
}

// Extract splits raw page content into its frontmatter block and body.
// The block must open with "---" on the first line and close with a "---"
// line; anything else yields an empty block and the content unchanged.
func Extract(content []byte) (fm, body []byte) {
	open := []byte("---\n")
	if !bytes.HasPrefix(content, open) {
		return nil, content
	}
	rest := content[len(open):]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return nil, content
	}
	block := rest[:idx]
	after := rest[idx+len("\n---"):]
	switch {
	case len(after) == 0:
		return block, nil
	case after[0] == '\n':
		return block, after[1:]
	default:
		// Closing delimiter is part of the text, e.g. "---foo".
		return nil, content
	}
}

// Parse decodes a frontmatter block. Duplicate mapping keys anywhere in the
// document fail with *apperr.DuplicateKeyError.
func Parse(raw []byte) (*Doc, error) {
	doc := &Doc{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	if len(root.Content) == 0 {
		return doc, nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: top level must be a mapping")
	}
	if err := checkDuplicates(m); err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		var val any
		if err := m.Content[i+1].Decode(&val); err != nil {
			return nil, fmt.Errorf("frontmatter: key %q: %w", key, err)
		}
		doc.Fields = append(doc.Fields, Field{Key: key, Value: val})
	}
	return doc, nil
}

func checkDuplicates(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		seen := make(map[string]struct{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if _, dup := seen[key]; dup {
				return &apperr.DuplicateKeyError{Key: key}
			}
			seen[key] = struct{}{}
			if err := checkDuplicates(n.Content[i+1]); err != nil {
				return err
			}
		}
	case yaml.SequenceNode, yaml.DocumentNode:
		for _, c := range n.Content {
			if err := checkDuplicates(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the value for key, if present.
func (d *Doc) Get(key string) (any, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Empty reports whether the document has no fields.
func (d *Doc) Empty() bool { return len(d.Fields) == 0 }

// Tags returns the page's tags, deduplicated and sorted. The tags field
// accepts a single string or a sequence of strings; anything else is ignored.
func (d *Doc) Tags() []string {
	v, ok := d.Get("tags")
	if !ok {
		return nil
	}
	set := make(map[string]struct{})
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	switch t := v.(type) {
	case string:
		add(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ImageRef is one normalized entry of the image field.
type ImageRef struct {
	Path    string `json:"path"`
	Caption string `json:"caption,omitempty"`
}

// Images normalizes the image field. Accepted shapes: a single path string,
// a list of path strings, or a list of [path, caption] pairs. Entries that
// fit none of these are skipped.
func (d *Doc) Images() []ImageRef {
	v, ok := d.Get("image")
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []ImageRef{{Path: t}}
	case []any:
		var out []ImageRef
		for _, item := range t {
			switch e := item.(type) {
			case string:
				out = append(out, ImageRef{Path: e})
			case []any:
				if len(e) == 0 {
					continue
				}
				p, ok := e[0].(string)
				if !ok {
					continue
				}
				ref := ImageRef{Path: p}
				if len(e) > 1 {
					if c, ok := e[1].(string); ok {
						ref.Caption = c
					}
				}
				out = append(out, ref)
			}
		}
		return out
	}
	return nil
}

// RuleKind identifies a layout rule type.
type RuleKind string

const (
	RuleSeparator RuleKind = "separator"
	RuleHeader    RuleKind = "header"
	RuleAlias     RuleKind = "alias"
	RuleGroup     RuleKind = "group"
)

// LayoutRule is one infobox layout directive. Above and Below name the
// frontmatter fields the rule is injected next to; a rule listing several
// fields is injected at every one of them.
type LayoutRule struct {
	Kind  RuleKind `json:"kind"`
	Value string   `json:"value,omitempty"`
	Above []string `json:"above,omitempty"`
	Below []string `json:"below,omitempty"`
}

var ruleKinds = []RuleKind{RuleSeparator, RuleHeader, RuleAlias, RuleGroup}

// Layout parses the layout field. Malformed entries are skipped rather than
// failing the document; partially written frontmatter should still render.
func (d *Doc) Layout() []LayoutRule {
	v, ok := d.Get("layout")
	if !ok {
		return nil
	}
	seq, ok := v.([]any)
	if !ok {
		return nil
	}
	var rules []LayoutRule
	for _, item := range seq {
		if r, ok := parseRule(item); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

func parseRule(item any) (LayoutRule, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return LayoutRule{}, false
	}
	for _, kind := range ruleKinds {
		raw, present := m[string(kind)]
		if !present {
			continue
		}
		rule := LayoutRule{Kind: kind}
		switch body := raw.(type) {
		case nil:
			// bare form, e.g. "- separator:"
		case string:
			rule.Value = body
		case map[string]any:
			if s, ok := body["value"].(string); ok {
				rule.Value = s
			}
			rule.Above = fieldNames(body["above"])
			rule.Below = fieldNames(body["below"])
		default:
			return LayoutRule{}, false
		}
		// Positional keys may also sit beside the kind key.
		if len(rule.Above) == 0 {
			rule.Above = fieldNames(m["above"])
		}
		if len(rule.Below) == 0 {
			rule.Below = fieldNames(m["below"])
		}
		return rule, true
	}
	return LayoutRule{}, false
}

func fieldNames(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
