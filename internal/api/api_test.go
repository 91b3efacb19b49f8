package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/whitfield/tome/internal/index"
	"github.com/whitfield/tome/internal/search"
	"github.com/whitfield/tome/internal/testutil"
	"github.com/whitfield/tome/internal/vaultservice"
	"github.com/whitfield/tome/internal/writer"
)

// testEnv sets up a temp vault, index, service and router. A non-empty
// authToken enables Bearer auth.
func testEnv(t *testing.T, authToken string, files map[string]string) (*vaultservice.Service, http.Handler) {
	t.Helper()

	_, store := testutil.SeedVault(t, files)
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
		t.Fatalf("Rebuild: %v", err)
	}
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetPage(t *testing.T) {
	_, router := testEnv(t, "", nil)

	w := doJSON(t, router, http.MethodPost, "/pages", CreatePageRequest{ParentDir: "lore", Name: "Dragons"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created PathResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.Path != "lore/Dragons.md" {
		t.Fatalf("path = %q", created.Path)
	}

	w = doJSON(t, router, http.MethodPut, "/pages/lore/Dragons.md", SavePageRequest{Content: "# Dragons\nFire."})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/pages/lore/Dragons.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var view PageView
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Path != "lore/Dragons.md" || view.Title != "Dragons" {
		t.Errorf("view = %+v", view)
	}
	if !strings.Contains(view.Rendered.HTMLAfterToc, `<h1 id="dragons">Dragons</h1>`) {
		t.Errorf("rendered = %q", view.Rendered.HTMLAfterToc)
	}
}

func TestGetPage_NotFound(t *testing.T) {
	_, router := testEnv(t, "", nil)
	if w := doJSON(t, router, http.MethodGet, "/pages/nope.md", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreatePage_Conflict(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{"A.md": "x"})
	w := doJSON(t, router, http.MethodPost, "/pages", CreatePageRequest{Name: "A"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSavePage_IfMatchConflict(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{"A.md": "v1"})

	raw, _ := json.Marshal(SavePageRequest{Content: "v2"})
	req := httptest.NewRequest(http.MethodPut, "/pages/A.md", bytes.NewReader(raw))
	req.Header.Set("If-Match", `"deadbeef"`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRenameEndpoint_RepairsLinks(t *testing.T) {
	svc, router := testEnv(t, "", map[string]string{
		"B.md": "target",
		"A.md": "see [[B|shown text]]",
	})

	w := doJSON(t, router, http.MethodPost, "/rename", RenameRequest{Path: "B.md", NewName: "B-new"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	view, err := svc.GetPage(context.Background(), "A.md")
	if err != nil {
		t.Fatal(err)
	}
	if view.RawContent != "see [[B-new|shown text]]" {
		t.Errorf("A.md = %q", view.RawContent)
	}
}

func TestTreeAndDirectory(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"lore/A.md": "a",
		"B.md":      "b",
	})

	w := doJSON(t, router, http.MethodGet, "/tree", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tree status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"lore/A.md"`) {
		t.Errorf("tree body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/directory/lore", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("directory status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"lore/A.md"`) {
		t.Errorf("directory body = %s", w.Body.String())
	}
	if w = doJSON(t, router, http.MethodGet, "/directory/none", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing dir status = %d", w.Code)
	}
}

func TestTagsAndBacklinks(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"Town.md": "---\ntags: [location]\n---\nx",
		"A.md":    "see [[Town|the town]]",
	})

	w := doJSON(t, router, http.MethodGet, "/tags", nil)
	if !strings.Contains(w.Body.String(), `"location"`) {
		t.Errorf("tags body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/tags/location", nil)
	if !strings.Contains(w.Body.String(), `"Town.md"`) {
		t.Errorf("tag pages body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/backlinks/Town.md", nil)
	if !strings.Contains(w.Body.String(), `"A.md"`) || !strings.Contains(w.Body.String(), `"the town"`) {
		t.Errorf("backlinks body = %s", w.Body.String())
	}
}

func TestResolveEndpoint(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{"sub/Y.md": "y"})

	w := doJSON(t, router, http.MethodGet, "/resolve?target=Y", nil)
	if !strings.Contains(w.Body.String(), `"sub/Y.md"`) {
		t.Errorf("resolve body = %s", w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/resolve?target=Nope", nil)
	if !strings.Contains(w.Body.String(), `"path":""`) {
		t.Errorf("broken resolve body = %s", w.Body.String())
	}
}

func TestRenderEndpoints(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{"Town.md": "t"})

	w := doJSON(t, router, http.MethodPost, "/render/preview", RenderRequest{Content: "go to [[Town]]"})
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal-link") {
		t.Errorf("preview body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/render/markdown", RenderRequest{Content: "go to [[Town]]"})
	if strings.Contains(w.Body.String(), "internal-link") {
		t.Errorf("plain render processed wikilinks: %s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{"Town.md": "riverside settlement"})

	w := doJSON(t, router, http.MethodGet, "/search?q=riverside", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"Town.md"`) {
		t.Errorf("search body = %s", w.Body.String())
	}
	if w = doJSON(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing q status = %d", w.Code)
	}
}

func TestReports(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"A.md":   "see [[Missing]] and ![[ghost.png]]",
		"Bad.md": "---\ntitle: [unclosed\n---\nx",
	})

	w := doJSON(t, router, http.MethodGet, "/reports/broken-links", nil)
	if !strings.Contains(w.Body.String(), `"Missing"`) {
		t.Errorf("broken links = %s", w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/reports/broken-images", nil)
	if !strings.Contains(w.Body.String(), `"ghost.png"`) {
		t.Errorf("broken images = %s", w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/reports/parse-errors", nil)
	if !strings.Contains(w.Body.String(), `"Bad.md"`) {
		t.Errorf("parse errors = %s", w.Body.String())
	}
}

func TestDeleteAsset(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{"A.md": "a"})

	if w := doJSON(t, router, http.MethodDelete, "/assets/A.md", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/pages/A.md", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", w.Code)
	}
}

func TestAssetStreaming(t *testing.T) {
	svc, _ := testEnv(t, "", map[string]string{"img/map.png": "\x89PNG fake"})

	ar := chi.NewRouter()
	ar.Get("/assets/*", NewAssetHandler(svc).ServeAsset)

	w := doJSON(t, ar, http.MethodGet, "/assets/img/map.png", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d, ct = %q", w.Code, w.Header().Get("Content-Type"))
	}

	// Traversal attempts are rejected before any disk read.
	w = doJSON(t, ar, http.MethodGet, "/assets/..%2F..%2Fetc%2Fpasswd", nil)
	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Fatalf("traversal status = %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	_, router := testEnv(t, "secret", map[string]string{"A.md": "a"})

	if w := doJSON(t, router, http.MethodGet, "/pages/A.md", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/pages/A.md", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", w.Code)
	}
}
