package frontmatter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/whitfield/tome/internal/apperr"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantFM  string
		wantBody string
	}{
		{"no frontmatter", "# Hello\n", "", "# Hello\n"},
		{"basic", "---\ntitle: x\n---\nbody\n", "title: x", "body\n"},
		{"closing at eof", "---\ntags: [a]\n---", "tags: [a]", ""},
		{"unclosed", "---\ntitle: x\nbody\n", "", "---\ntitle: x\nbody\n"},
		{"delimiter mid text", "---\na: 1\n---notclosed\n", "", "---\na: 1\n---notclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body := Extract([]byte(tt.content))
			if string(fm) != tt.wantFM {
				t.Errorf("fm = %q, want %q", fm, tt.wantFM)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestParse_OrderPreserved(t *testing.T) {
	doc, err := Parse([]byte("zebra: 1\napple: 2\nmiddle: 3\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var keys []string
	for _, f := range doc.Fields {
		keys = append(keys, f.Key)
	}
	want := []string{"zebra", "apple", "middle"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestParse_DuplicateKey(t *testing.T) {
	_, err := Parse([]byte("title: a\ntitle: b\n"))
	var dup *apperr.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateKeyError", err)
	}
	if dup.Key != "title" {
		t.Errorf("Key = %q, want title", dup.Key)
	}
}

func TestParse_NestedDuplicateKey(t *testing.T) {
	_, err := Parse([]byte("info:\n  a: 1\n  a: 2\n"))
	var dup *apperr.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateKeyError", err)
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("title: [unclosed\n"))
	if err == nil {
		t.Fatal("want error for malformed yaml")
	}
	var dup *apperr.DuplicateKeyError
	if errors.As(err, &dup) {
		t.Error("malformed yaml must not report a duplicate key")
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{"list", "tags: [city, faction, city]", []string{"city", "faction"}},
		{"scalar", "tags: lore", []string{"lore"}},
		{"absent", "title: x", nil},
		{"mixed junk", "tags: [ok, 7, '']", []string{"ok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := doc.Tags(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImages(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []ImageRef
	}{
		{"single string", `image: cover.jpg`, []ImageRef{{Path: "cover.jpg"}}},
		{"list of strings", "image:\n  - a.png\n  - b.png",
			[]ImageRef{{Path: "a.png"}, {Path: "b.png"}}},
		{"pairs", "image:\n  - [us.jpg, USA]\n  - [jp.jpg]",
			[]ImageRef{{Path: "us.jpg", Caption: "USA"}, {Path: "jp.jpg"}}},
		{"mixed", "image:\n  - plain.png\n  - [cap.png, Caption]\n  - 42",
			[]ImageRef{{Path: "plain.png"}, {Path: "cap.png", Caption: "Caption"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := doc.Images(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Images() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	yaml := `
layout:
  - separator:
      above: [population, ruler]
  - header: Demographics
  - alias:
      value: pop
      below: population
  - 17
  - bogus: nope
`
	doc, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rules := doc.Layout()
	if len(rules) != 3 {
		t.Fatalf("len(rules) = %d, want 3 (malformed entries skipped)", len(rules))
	}
	if rules[0].Kind != RuleSeparator || !reflect.DeepEqual(rules[0].Above, []string{"population", "ruler"}) {
		t.Errorf("rule 0 = %+v", rules[0])
	}
	if rules[1].Kind != RuleHeader || rules[1].Value != "Demographics" {
		t.Errorf("rule 1 = %+v", rules[1])
	}
	if rules[2].Kind != RuleAlias || rules[2].Value != "pop" || !reflect.DeepEqual(rules[2].Below, []string{"population"}) {
		t.Errorf("rule 2 = %+v", rules[2])
	}
}
