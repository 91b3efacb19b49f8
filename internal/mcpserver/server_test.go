package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/whitfield/tome/internal/index"
	"github.com/whitfield/tome/internal/search"
	"github.com/whitfield/tome/internal/testutil"
	"github.com/whitfield/tome/internal/vaultservice"
	"github.com/whitfield/tome/internal/writer"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	_, store := testutil.TestVault(t)
	log := testutil.DiscardLogger()
	ix := index.New(store, index.WithLogger(log))
	srch, err := search.Open()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srch.Close() })
	w := writer.New(store, ix, writer.WithLogger(log))
	svc := vaultservice.NewService(store, ix, srch, w, vaultservice.WithLogger(log))
	if err := ix.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go does not expose a direct "call tool" test helper, so the
	// handler functions are exercised directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_vault":
		result, err = srv.searchVault(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "render_page":
		result, err = srv.renderPage(ctx, req)
	case "create_page":
		result, err = srv.createPage(ctx, req)
	case "save_page":
		result, err = srv.savePage(ctx, req)
	case "list_directory":
		result, err = srv.listDirectory(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadPage(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_page", map[string]any{
		"parent_dir": "lore",
		"name":       "Dragons",
		"content":    "# Dragons\nFire.",
	})
	if text := resultText(r); text != "created: lore/Dragons.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_page", map[string]any{"path": "lore/Dragons.md"})
	if text := resultText(r); text != "# Dragons\nFire." {
		t.Errorf("read result = %q", text)
	}
}

func TestRenderPage(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]any{
		"name":    "Town",
		"content": "# Town\nA place.",
	})

	r := callTool(t, srv, "render_page", map[string]any{"path": "Town.md"})
	if text := resultText(r); !strings.Contains(text, "town") {
		t.Errorf("render result = %q", text)
	}
}

func TestReadPageMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_page", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
}

func TestSavePage(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]any{"name": "A"})

	r := callTool(t, srv, "save_page", map[string]any{"path": "A.md", "content": "updated"})
	if text := resultText(r); text != "saved: A.md" {
		t.Errorf("save result = %q", text)
	}
	r = callTool(t, srv, "read_page", map[string]any{"path": "A.md"})
	if text := resultText(r); text != "updated" {
		t.Errorf("read result = %q", text)
	}
}

func TestListDirectory(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]any{"parent_dir": "lore", "name": "A"})
	_ = callTool(t, srv, "create_page", map[string]any{"parent_dir": "lore", "name": "B"})

	r := callTool(t, srv, "list_directory", map[string]any{"path": "lore"})
	text := resultText(r)
	if !strings.Contains(text, "lore/A.md") || !strings.Contains(text, "lore/B.md") {
		t.Errorf("list result = %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]any{"name": "a", "content": "links to [[b]]"})
	_ = callTool(t, srv, "create_page", map[string]any{"name": "b", "content": "target"})

	r := callTool(t, srv, "get_backlinks", map[string]any{"path": "b.md"})
	if text := resultText(r); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
}

func TestListTags(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]any{
		"name":    "Town",
		"content": "---\ntags: [location]\n---\nx",
	})

	r := callTool(t, srv, "list_tags", map[string]any{})
	if text := resultText(r); !strings.Contains(text, "location: Town.md") {
		t.Errorf("tags = %q", text)
	}
}

func TestPageFormatContract(t *testing.T) {
	srv := testServer(t)
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = "get_page_contract"

	r, err := srv.getPageContract(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(r)
	if !strings.Contains(text, "[[wikilinks]]") || !strings.Contains(text, "frontmatter") {
		t.Errorf("contract missing expected sections: %q", text)
	}
}

func TestSearchVault(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]any{"name": "Town", "content": "riverside settlement"})

	r := callTool(t, srv, "search_vault", map[string]any{"query": "riverside"})
	if text := resultText(r); !strings.Contains(text, "Town.md") {
		t.Errorf("search = %q", text)
	}
}
