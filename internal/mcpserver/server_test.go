package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/laguz/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	svc, _ := testutil.TestService(t)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_lore":
		result, err = srv.searchLore(ctx, req)
	case "read_lore":
		result, err = srv.readLore(ctx, req)
	case "upsert_lore":
		result, err = srv.upsertLore(ctx, req)
	case "list_lore_for_file":
		result, err = srv.listLoreForFile(ctx, req)
	case "get_lore_contract":
		result, err = srv.getLoreContract(ctx, req)
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

func TestUpsertAndReadLore(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "upsert_lore", map[string]interface{}{
		"file":      "src/main.go",
		"startLine": 12,
		"endLine":   14,
		"summary":   "retry loop rationale",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") {
		t.Fatalf("upsert result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "read_lore", map[string]interface{}{"id": id})
	text = resultText(r)
	if !strings.Contains(text, "retry loop rationale") {
		t.Errorf("read result = %q", text)
	}
	if !strings.Contains(text, "src/main.go") {
		t.Errorf("read result missing file: %q", text)
	}
}

func TestUpsertLore_UpdateById(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "upsert_lore", map[string]interface{}{
		"file":    "a.go",
		"summary": "v1",
	})
	id := strings.TrimPrefix(resultText(r), "created: ")

	r = callTool(t, srv, "upsert_lore", map[string]interface{}{
		"id":      id,
		"summary": "v2",
	})
	if got := resultText(r); got != "updated: "+id {
		t.Errorf("update result = %q", got)
	}

	r = callTool(t, srv, "read_lore", map[string]interface{}{"id": id})
	text := resultText(r)
	if !strings.Contains(text, "v2") {
		t.Errorf("summary not updated: %q", text)
	}
	// Omitted file must survive the update.
	if !strings.Contains(text, "a.go") {
		t.Errorf("file lost on update: %q", text)
	}
}

func TestUpsertLore_RequiresFileOnCreate(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "upsert_lore", map[string]interface{}{
		"summary": "floating",
	})
	if !r.IsError {
		t.Error("expected error when creating without a file")
	}
}

func TestUpsertLore_CommaSeparatedTags(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "upsert_lore", map[string]interface{}{
		"file": "t.go",
		"tags": "ops, retry ,",
	})
	id := strings.TrimPrefix(resultText(r), "created: ")

	r = callTool(t, srv, "read_lore", map[string]interface{}{"id": id})
	text := resultText(r)
	if !strings.Contains(text, `"ops"`) || !strings.Contains(text, `"retry"`) {
		t.Errorf("tags not applied: %q", text)
	}
}

func TestListLoreForFile(t *testing.T) {
	srv := testServer(t)

	callTool(t, srv, "upsert_lore", map[string]interface{}{"file": "x.go", "summary": "one"})
	callTool(t, srv, "upsert_lore", map[string]interface{}{"file": "x.go", "summary": "two"})
	callTool(t, srv, "upsert_lore", map[string]interface{}{"file": "y.go", "summary": "elsewhere"})

	r := callTool(t, srv, "list_lore_for_file", map[string]interface{}{"file": "x.go"})
	text := resultText(r)
	if !strings.Contains(text, "one") || !strings.Contains(text, "two") {
		t.Errorf("list = %q", text)
	}
	if strings.Contains(text, "elsewhere") {
		t.Errorf("list leaked other file's records: %q", text)
	}
}

func TestListLoreForFile_Empty(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_lore_for_file", map[string]interface{}{"file": "never.go"})
	if got := resultText(r); got != "no records for this file" {
		t.Errorf("empty list = %q", got)
	}
}

func TestReadLoreMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_lore", map[string]interface{}{"id": "ghost"})
	if !r.IsError {
		t.Error("expected error for missing record")
	}
}

func TestSearchLore(t *testing.T) {
	srv := testServer(t)

	callTool(t, srv, "upsert_lore", map[string]interface{}{
		"file":    "s.go",
		"summary": "uniquetoken decision",
		"body":    "uniquetoken appears here too",
	})

	r := callTool(t, srv, "search_lore", map[string]interface{}{"query": "uniquetoken"})
	text := resultText(r)
	if !strings.Contains(text, "s.go") {
		t.Errorf("search = %q", text)
	}
}

func TestGetLoreContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_lore_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Lore Record Contract") {
		t.Errorf("contract = %q", text)
	}
}
