// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/whitfield/tome/internal/vaultservice"
)

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp *server.MCPServer
	svc *vaultservice.Service
}

// New creates a new MCP server with all vault tools registered.
func New(svc *vaultservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tome",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Full-text search through page bodies, titles and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the raw Markdown content of a page, frontmatter included."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the page (e.g. lore/Dragons.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("render_page",
		mcp.WithDescription("Render a page to sanitized HTML with its table of contents. "+
			"Wikilinks, image embeds, spoilers and inserts are processed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the page")),
	), s.renderPage)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new page. Content MUST follow the canonical page format "+
			"(optional YAML frontmatter with tags/image/layout, Markdown body with [[wikilinks]]). "+
			"Read the contract first via the get_page_contract tool or the tome://page-format resource."),
		mcp.WithString("parent_dir", mcp.Description("Directory for the new page (empty for vault root)")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Page name without the .md extension")),
		mcp.WithString("content", mcp.Description("Optional initial Markdown content")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Replace the content of an existing page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the page")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
	), s.savePage)

	s.mcp.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List the direct children of a vault directory."),
		mcp.WithString("path", mcp.Description("Directory to list (empty for vault root)")),
	), s.listDirectory)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages that link to the specified page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the page to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with the pages carrying it."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_page_contract",
		mcp.WithDescription("Returns the canonical page format contract. "+
			"Call this before creating or updating pages to ensure correct structure."),
	), s.getPageContract)

	// Resource: page format contract.
	s.mcp.AddResource(
		mcp.NewResource("tome://page-format", "Page Format Contract",
			mcp.WithResourceDescription("Canonical Markdown page format that all pages must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.GetPage(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(view.RawContent), nil
}

func (s *Server) renderPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.GetPage(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(view.Rendered, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parentDir := ""
	if v, pErr := req.RequireString("parent_dir"); pErr == nil {
		parentDir = v
	}
	content := ""
	if v, cErr := req.RequireString("content"); cErr == nil {
		content = v
	}

	path, err := s.svc.CreatePage(ctx, parentDir, name, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content != "" {
		if err := s.svc.SavePage(ctx, path, []byte(content), ""); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) savePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SavePage(ctx, path, []byte(content), ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", path)), nil
}

func (s *Server) listDirectory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := ""
	if v, pErr := req.RequireString("path"); pErr == nil {
		dir = v
	}
	items, err := s.svc.ListDirectory(dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, it := range items {
		lines = append(lines, it.Path)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("empty directory"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bls := s.svc.Backlinks(path)
	if len(bls) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, bl := range bls {
		lines = append(lines, bl.Source)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTags(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := s.svc.AllTags()
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	var lines []string
	for _, t := range tags {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Name, strings.Join(t.Pages, ", ")))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getPageContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatContract), nil
}

func (s *Server) readPageFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "tome://page-format",
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
