// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz lore tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/loreservice"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp *server.MCPServer
	svc *loreservice.Service
}

// New creates a new MCP server with all Laguz tools registered.
func New(svc *loreservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_lore",
		mcp.WithDescription("Full-text search through lore record summaries, bodies, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLore)

	s.mcp.AddTool(mcp.NewTool("read_lore",
		mcp.WithDescription("Read a single lore record by id, including its location and body."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id (ULID)")),
	), s.readLore)

	s.mcp.AddTool(mcp.NewTool("upsert_lore",
		mcp.WithDescription("Create or update a lore record attached to a file and line range. "+
			"Pass an id to update an existing record; omit it to create. Omitted fields keep "+
			"their current values. Read the contract first via the get_lore_contract tool or "+
			"the laguz://lore-format resource."),
		mcp.WithString("id", mcp.Description("Existing record id to update (omit to create)")),
		mcp.WithString("file", mcp.Description("Workspace-relative source file path, forward slashes")),
		mcp.WithNumber("startLine", mcp.Description("First line of the range (1-based, inclusive)")),
		mcp.WithNumber("endLine", mcp.Description("Last line of the range (1-based, inclusive)")),
		mcp.WithString("summary", mcp.Description("One-line summary shown in decorations")),
		mcp.WithString("body", mcp.Description("Markdown body; inline #tags and [[wikilinks]] are extracted")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.upsertLore)

	s.mcp.AddTool(mcp.NewTool("list_lore_for_file",
		mcp.WithDescription("List the active lore records attached to one source file."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Workspace-relative source file path")),
	), s.listLoreForFile)

	s.mcp.AddTool(mcp.NewTool("get_lore_contract",
		mcp.WithDescription("Returns the canonical Laguz lore record contract. "+
			"Call this before creating or updating records to ensure correct structure."),
	), s.getLoreContract)

	// Resource: lore record contract.
	s.mcp.AddResource(
		mcp.NewResource("laguz://lore-format", "Lore Format Contract",
			mcp.WithResourceDescription("Canonical lore record structure that all records follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLoreFormatResource,
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

func (s *Server) searchLore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) readLore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Record(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) upsertLore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p lorebook.Payload

	if v := req.GetString("id", ""); v != "" {
		p.ID = &v
	}
	if v := req.GetString("file", ""); v != "" {
		p.File = &v
	}
	if v := req.GetInt("startLine", 0); v != 0 {
		p.StartLine = &v
	}
	if v := req.GetInt("endLine", 0); v != 0 {
		p.EndLine = &v
	}
	if v := req.GetString("summary", ""); v != "" {
		p.Summary = &v
	}
	if v := req.GetString("body", ""); v != "" {
		p.Body = &v
	}
	if v := req.GetString("tags", ""); v != "" {
		var tags []string
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		p.Tags = tags
	}

	if p.ID == nil && p.File == nil {
		return mcp.NewToolResultError("file is required when creating a record"), nil
	}

	rec, created, err := s.svc.Save(ctx, p, lorebook.Fallback{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", verb, rec.ID)), nil
}

func (s *Server) listLoreForFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records := s.svc.RecordsForFile(ctx, file)
	if len(records) == 0 {
		return mcp.NewToolResultText("no records for this file"), nil
	}
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLoreContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LoreFormatContract), nil
}

func (s *Server) readLoreFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "laguz://lore-format",
			MIMEType: "text/markdown",
			Text:     LoreFormatContract,
		},
	}, nil
}
