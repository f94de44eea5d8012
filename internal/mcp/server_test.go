package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doccontext-mcp/internal/app"
	"github.com/dshills/doccontext-mcp/internal/config"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func setupServer(t *testing.T) *Server {
	root := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(root, "doccontext.db")
	cfg.DataDir = filepath.Join(root, "data")

	a, err := app.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	s, err := NewServer(a)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, h handler, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func callErr(t *testing.T, h handler, args map[string]interface{}) *MCPError {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	_, err := h(context.Background(), req)
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	return mcpErr
}

const acmeDoc = `{
  "name": "acme",
  "display_name": "Acme API",
  "version": "2.1",
  "base_url": "https://docs.acme.test",
  "sections": [{
    "title": "Auth",
    "path": "auth",
    "url": "https://docs.acme.test/auth",
    "keywords": ["auth", "api-key"],
    "use_cases": ["authenticate requests"],
    "tags": ["security"],
    "priority": 10,
    "content": "Use API keys for authentication"
  }]
}`

func TestServer_Initialization(t *testing.T) {
	s := setupServer(t)
	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.NotNil(t, s.app.Searcher)
	assert.NotNil(t, s.app.Indexer)
}

func TestAddDocThenSearch(t *testing.T) {
	s := setupServer(t)

	added := call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc})
	assert.Equal(t, true, added["success"])
	assert.Equal(t, float64(1), added["sections_indexed"])

	first := call(t, s.handleSearchDocs, map[string]interface{}{"query": "api-key"})
	assert.Equal(t, true, first["found"])
	assert.Equal(t, "metadata", first["transparency"].(map[string]interface{})["method"])

	second := call(t, s.handleSearchDocs, map[string]interface{}{"query": "api-key"})
	tr := second["transparency"].(map[string]interface{})
	assert.Equal(t, "cache", tr["method"])
	assert.Equal(t, true, tr["from_cache"])

	lexical := call(t, s.handleSearchDocs, map[string]interface{}{"query": "authentication", "max_results": float64(3)})
	assert.Equal(t, "fts", lexical["transparency"].(map[string]interface{})["method"])
}

func TestAddDoc_Failures(t *testing.T) {
	s := setupServer(t)

	missing := call(t, s.handleAddDoc, map[string]interface{}{
		"doc_json": map[string]interface{}{"name": "acme", "display_name": "Acme", "sections": []interface{}{}},
	})
	assert.Equal(t, false, missing["success"])
	assert.Equal(t, "Missing required field: base_url", missing["message"])

	call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc})
	dup := call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc})
	assert.Equal(t, false, dup["success"])

	replaced := call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc, "replace": true})
	assert.Equal(t, true, replaced["success"])

	mcpErr := callErr(t, s.handleAddDoc, map[string]interface{}{})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestListAndDeleteDocs(t *testing.T) {
	s := setupServer(t)

	empty := call(t, s.handleListDocs, nil)
	assert.Equal(t, float64(0), empty["count"])
	assert.Equal(t, []interface{}{}, empty["docs"])

	call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc})
	listed := call(t, s.handleListDocs, nil)
	assert.Equal(t, float64(1), listed["count"])
	doc := listed["docs"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "acme", doc["name"])
	assert.Equal(t, "2.1", doc["version"])
	assert.Equal(t, float64(1), doc["section_count"])

	deleted := call(t, s.handleDeleteDoc, map[string]interface{}{"name": "acme"})
	assert.Equal(t, true, deleted["deleted"])

	again := call(t, s.handleDeleteDoc, map[string]interface{}{"name": "acme"})
	assert.Equal(t, false, again["deleted"])

	mcpErr := callErr(t, s.handleDeleteDoc, map[string]interface{}{"name": " "})
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestShowContext(t *testing.T) {
	s := setupServer(t)
	call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc})

	out := call(t, s.handleShowContext, map[string]interface{}{"query": "api-key", "doc_name": "acme"})
	preview := "## Auth\n\nUse API keys for authentication"
	assert.Equal(t, preview, out["context_preview"])
	assert.Equal(t, float64(len(preview)/4), out["token_estimate"])
	assert.Equal(t, float64(1), out["chunks_count"])
	assert.Equal(t, "acme", out["doc_name"])
}

func TestSearchDocs_ParamErrors(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"blank query", map[string]interface{}{"query": "   "}, ErrorCodeEmptyQuery},
		{"max too large", map[string]interface{}{"query": "x", "max_results": float64(500)}, ErrorCodeInvalidParams},
		{"negative max", map[string]interface{}{"query": "x", "max_results": float64(-1)}, ErrorCodeInvalidParams},
		{"fractional max", map[string]interface{}{"query": "x", "max_results": 2.7}, ErrorCodeInvalidParams},
		{"non-numeric max", map[string]interface{}{"query": "x", "max_results": "3"}, ErrorCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcpErr := callErr(t, s.handleSearchDocs, tt.args)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}

	var req mcp.CallToolRequest
	req.Params.Arguments = "not an object"
	_, err := s.handleSearchDocs(context.Background(), req)
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	s := setupServer(t)
	call(t, s.handleAddDoc, map[string]interface{}{"doc_json": acmeDoc})
	call(t, s.handleSearchDocs, map[string]interface{}{"query": "api-key"})

	out := call(t, s.handleGetStatus, nil)
	assert.Equal(t, float64(1), out["documents"])
	assert.Equal(t, float64(1), out["sections"])
	assert.Equal(t, float64(1), out["cache_entries"])
	health := out["health"].(map[string]interface{})
	assert.Equal(t, true, health["database_accessible"])
	assert.Equal(t, false, health["embeddings_available"])
	assert.Equal(t, true, health["fts_index_built"])
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeInvalidParams, "bad", nil)
	assert.Equal(t, "MCP error -32602: bad", err.Error())
}
