package vaultservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/whitfield/tome/internal/apperr"
	"github.com/whitfield/tome/internal/frontmatter"
	"github.com/whitfield/tome/internal/index"
	"github.com/whitfield/tome/internal/search"
	"github.com/whitfield/tome/internal/testutil"
	"github.com/whitfield/tome/internal/writer"
)

func testService(t *testing.T, files map[string]string) (*Service, *index.Index) {
	t.Helper()
	_, fs := testutil.SeedVault(t, files)
	log := testutil.DiscardLogger()
	ix := index.New(fs, index.WithLogger(log))
	srch, err := search.Open()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srch.Close() })
	w := writer.New(fs, ix, writer.WithLogger(log))
	svc := NewService(fs, ix, srch, w, WithLogger(log))
	if err := ix.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return svc, ix
}

func TestGetPage(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"Town.md": "---\ntitle: Town\ntags: [location]\n---\n# Town\nA quiet place.",
		"A.md":    "see [[Town|the town]]",
	})

	view, err := svc.GetPage(context.Background(), "Town.md")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if view.Title != "Town" {
		t.Errorf("title = %q", view.Title)
	}
	if !strings.Contains(view.RawContent, "tags: [location]") {
		t.Errorf("raw content lost frontmatter: %q", view.RawContent)
	}
	if !strings.Contains(view.Rendered.HTMLAfterToc, `<h1 id="town">Town</h1>`) {
		t.Errorf("rendered = %q", view.Rendered.HTMLAfterToc)
	}
	if len(view.Rendered.Toc) != 1 || view.Rendered.Toc[0].Text != "Town" {
		t.Errorf("toc = %+v", view.Rendered.Toc)
	}
	if len(view.Backlinks) != 1 || view.Backlinks[0].Source != "A.md" || view.Backlinks[0].Alias != "the town" {
		t.Errorf("backlinks = %+v", view.Backlinks)
	}
	if len(view.Tags) != 1 || view.Tags[0] != "location" {
		t.Errorf("tags = %+v", view.Tags)
	}
	if view.Checksum == "" {
		t.Error("checksum empty")
	}
}

func TestGetPage_NotFound(t *testing.T) {
	svc, _ := testService(t, nil)
	if _, err := svc.GetPage(context.Background(), "Missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetPage_MalformedFrontmatter(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"Bad.md": "---\ntitle: [unclosed\n---\nbody",
	})
	view, err := svc.GetPage(context.Background(), "Bad.md")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if view.ParseError == "" {
		t.Error("parse error not surfaced")
	}
}

func TestGetPage_LayoutRules(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"Town.md": "---\ntitle: Town\nfounded: 1200\nlayout:\n" +
			"  - separator:\n      above: [title, founded]\n" +
			"  - header: History\n---\nbody",
	})

	view, err := svc.GetPage(context.Background(), "Town.md")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if len(view.Layout) != 2 {
		t.Fatalf("Layout = %+v, want 2 rules", view.Layout)
	}
	sep := view.Layout[0]
	if sep.Kind != frontmatter.RuleSeparator || len(sep.Above) != 2 || sep.Above[0] != "title" || sep.Above[1] != "founded" {
		t.Errorf("rule 0 = %+v", sep)
	}
	if hdr := view.Layout[1]; hdr.Kind != frontmatter.RuleHeader || hdr.Value != "History" {
		t.Errorf("rule 1 = %+v", hdr)
	}
	for _, f := range view.Frontmatter {
		if f.Key == "layout" {
			t.Errorf("raw layout field leaked into rendered frontmatter: %+v", f)
		}
	}
}

func TestSavePage_ChecksumConflict(t *testing.T) {
	svc, _ := testService(t, map[string]string{"A.md": "v1"})
	ctx := context.Background()

	view, err := svc.GetPage(ctx, "A.md")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SavePage(ctx, "A.md", []byte("v2"), view.Checksum); err != nil {
		t.Fatalf("save with matching checksum: %v", err)
	}
	if err := svc.SavePage(ctx, "A.md", []byte("v3"), view.Checksum); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestResolveWikilink_AppearsAfterCreate(t *testing.T) {
	svc, ix := testService(t, map[string]string{"X.md": "see [[Y]]"})
	ctx := context.Background()

	if got := svc.ResolveWikilink("Y"); got != "" {
		t.Fatalf("resolved before create: %q", got)
	}
	if bls := svc.Backlinks("Y.md"); len(bls) != 0 {
		t.Fatalf("backlinks before create = %+v", bls)
	}

	if _, err := svc.CreatePage(ctx, "sub", "Y", ""); err != nil {
		t.Fatal(err)
	}
	if got := svc.ResolveWikilink("Y"); got != "sub/Y.md" {
		t.Fatalf("resolved = %q", got)
	}
	bls := ix.Backlinks("sub/Y.md")
	if len(bls) != 1 || bls[0].Source != "X.md" {
		t.Fatalf("backlinks = %+v", bls)
	}
}

func TestSearchSeededByRebuildAndKeptCurrent(t *testing.T) {
	svc, _ := testService(t, map[string]string{"Town.md": "riverside settlement"})
	ctx := context.Background()

	got, err := svc.Search(ctx, "riverside", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Path != "Town.md" {
		t.Fatalf("results = %+v", got)
	}

	if err := svc.SavePage(ctx, "Town.md", []byte("mountain outpost"), ""); err != nil {
		t.Fatal(err)
	}
	if got, _ = svc.Search(ctx, "riverside", 10); len(got) != 0 {
		t.Fatalf("stale search hit: %+v", got)
	}
	if got, _ = svc.Search(ctx, "mountain", 10); len(got) != 1 {
		t.Fatalf("results = %+v", got)
	}

	if err := svc.Delete(ctx, "Town.md"); err != nil {
		t.Fatal(err)
	}
	if got, _ = svc.Search(ctx, "mountain", 10); len(got) != 0 {
		t.Fatalf("deleted page still searchable: %+v", got)
	}
}

func TestListDirectory(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"lore/A.md": "a",
		"lore/B.md": "b",
	})
	items, err := svc.ListDirectory("lore")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if _, err := svc.ListDirectory("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadAsset(t *testing.T) {
	svc, _ := testService(t, map[string]string{"img/map.png": "\x89PNG fake"})

	data, ct, err := svc.ReadAsset("img/map.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || ct != "image/png" {
		t.Errorf("ct = %q, len = %d", ct, len(data))
	}
	if _, _, err := svc.ReadAsset("../outside"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
}
