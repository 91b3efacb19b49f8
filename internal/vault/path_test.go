package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/whitfield/tome/internal/apperr"
)

func testRoot(t *testing.T) *Root {
	t.Helper()
	r, err := NewRoot(t.TempDir())
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	return r
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want Kind
	}{
		{"note.md", KindPage},
		{"NOTE.MD", KindPage},
		{"map.png", KindImage},
		{"photo.JPEG", KindImage},
		{"diagram.svg", KindImage},
		{"archive.zip", KindOpaque},
		{"README", KindOpaque},
	}
	for _, c := range cases {
		if got := Classify(c.name); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestStem_PreservesEmbeddedPeriods(t *testing.T) {
	cases := map[string]string{
		"api.v1.md":     "api.v1",
		"notes/plan.md": "plan",
		"img.tar.gz":    "img.tar",
		"plain":         "plain",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := testRoot(t)
	for _, rel := range []string{"page.md", "topics/deep/note.md", "images/map.png"} {
		abs, err := r.Abs(rel)
		if err != nil {
			t.Fatalf("Abs(%q): %v", rel, err)
		}
		back, err := r.Rel(abs)
		if err != nil {
			t.Fatalf("Rel(%q): %v", abs, err)
		}
		if back != rel {
			t.Errorf("round trip %q -> %q", rel, back)
		}
	}
}

func TestAbs_RejectsEscape(t *testing.T) {
	r := testRoot(t)
	for _, rel := range []string{"../outside.md", "a/../../etc/passwd", "/etc/passwd"} {
		if _, err := r.Abs(rel); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Abs(%q) err = %v, want ErrInvalidPath", rel, err)
		}
	}
}

func TestRel_RejectsOutside(t *testing.T) {
	r := testRoot(t)
	outside := filepath.Dir(r.Path())
	if _, err := r.Rel(outside); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("Rel(%q) err = %v, want ErrInvalidPath", outside, err)
	}
}

func TestRel_ResolvesSymlinkedSpelling(t *testing.T) {
	r := testRoot(t)
	target := filepath.Join(r.Path(), "real.md")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(r.Path(), "alias.md")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	rel, err := r.Rel(link)
	if err != nil {
		t.Fatalf("Rel(link): %v", err)
	}
	if rel != "real.md" {
		t.Errorf("symlinked spelling resolved to %q, want %q", rel, "real.md")
	}
}
