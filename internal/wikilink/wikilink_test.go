package wikilink

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Link
	}{
		{"bare", "See [[Town]].", []Link{{Target: "Town"}}},
		{"alias", "See [[Town|the town]].", []Link{{Target: "Town", Alias: "the town"}}},
		{"section", "See [[Town#History]].", []Link{{Target: "Town", Section: "History"}}},
		{"full", "[[Town#History|old days]]", []Link{{Target: "Town", Section: "History", Alias: "old days"}}},
		{"escaped pipe", `| [[Town\|the town]] |`, []Link{{Target: "Town", Alias: "the town"}}},
		{"trimmed", "[[ Town | label ]]", []Link{{Target: "Town", Alias: "label"}}},
		{"double section stays text", "[[Town#A#B]]", nil},
		{"multiple in order", "[[A]] then [[B|b]]", []Link{{Target: "A"}, {Target: "B", Alias: "b"}}},
		{"none", "no links here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.body); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestRewriteTargets(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bare", "see [[B]]", "see [[B-new]]"},
		{"alias preserved", "see [[B|shown text]]", "see [[B-new|shown text]]"},
		{"section preserved", "see [[B#History]]", "see [[B-new#History]]"},
		{"full preserved", "[[B#Era|then]]", "[[B-new#Era|then]]"},
		{"escaped pipe preserved", `| [[B\|cell]] |`, `| [[B-new\|cell]] |`},
		{"other targets untouched", "[[A]] and [[B]]", "[[A]] and [[B-new]]"},
		{"trimmed target match", "[[ B ]]", "[[B-new]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteTargets(tt.body, "B", "B-new"); got != tt.want {
				t.Errorf("RewriteTargets = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayText(t *testing.T) {
	if got := (Link{Target: "Town"}).DisplayText(); got != "Town" {
		t.Errorf("got %q", got)
	}
	if got := (Link{Target: "Town", Alias: "home"}).DisplayText(); got != "home" {
		t.Errorf("got %q", got)
	}
}

func TestStripMarkup(t *testing.T) {
	in := "Rise of [[Empire|the Empire]] and [[Decline]]"
	want := "Rise of the Empire and Decline"
	if got := StripMarkup(in); got != want {
		t.Errorf("StripMarkup = %q, want %q", got, want)
	}
}
