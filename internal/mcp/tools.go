package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/doccontext-mcp/internal/indexer"
	"github.com/dshills/doccontext-mcp/internal/searcher"
	"github.com/dshills/doccontext-mcp/internal/storage"
	"github.com/dshills/doccontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	maxResults, err := getIntParam(args, "max_results", 0)
	if err != nil {
		return nil, err
	}
	if maxResults < 0 || maxResults > maxResultsLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("max_results must be between 1 and %d", maxResultsLimit), map[string]interface{}{
			"param": "max_results",
			"value": maxResults,
		})
	}

	res, err := s.app.Searcher.Search(ctx, searcher.SearchRequest{
		Query:      query,
		DocName:    getStringDefault(args, "doc_name", ""),
		MaxResults: s.app.MaxResults(maxResults),
	})
	if err != nil {
		return nil, s.internalError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(res)), nil
}

// handleShowContext handles the show_context tool invocation
func (s *Server) handleShowContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	preview, err := s.app.Searcher.Context(ctx, query, getStringDefault(args, "doc_name", ""))
	if err != nil {
		return nil, s.internalError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(preview)), nil
}

// handleListDocs handles the list_docs tool invocation
func (s *Server) handleListDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.app.Storage.ListDocuments(ctx)
	if err != nil {
		return nil, s.internalError("failed to list documents", err)
	}

	response := map[string]interface{}{
		"docs":  docs,
		"count": len(docs),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAddDoc handles the add_doc tool invocation. Record problems are a
// success=false result, not a protocol error.
func (s *Server) handleAddDoc(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	raw, err := recordBytes(args["doc_json"])
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "doc_json parameter is required", map[string]interface{}{
			"param":  "doc_json",
			"reason": err.Error(),
		})
	}

	res, err := s.app.Indexer.InsertJSON(ctx, raw, getBoolDefault(args, "replace", false))
	if err != nil {
		s.logger.Error("add_doc failed", zap.Error(err))
		res = &indexer.Result{Success: false, Message: err.Error()}
	}

	return mcp.NewToolResultText(formatJSON(res)), nil
}

// handleDeleteDoc handles the delete_doc tool invocation
func (s *Server) handleDeleteDoc(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(getStringDefault(args, "name", ""))
	if name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	err = s.app.Storage.DeleteDocument(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"deleted": false,
			"name":    name,
			"message": "Document not found. Use list_docs to see indexed documents.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, s.internalError("failed to delete document", err)
	}

	response := map[string]interface{}{
		"deleted": true,
		"name":    name,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.Status(ctx)
	if err != nil {
		return nil, s.internalError("failed to get status", err)
	}
	return mcp.NewToolResultText(formatJSON(status)), nil
}

// Helper functions

func (s *Server) internalError(message string, err error) error {
	s.logger.Error(message, zap.Error(err))
	return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// arguments returns the call's arguments. A call without arguments is an
// empty map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireQuery(args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return query, nil
}

// recordBytes accepts doc_json as a JSON string or an already-decoded object.
func recordBytes(v interface{}) ([]byte, error) {
	switch doc := v.(type) {
	case nil:
		return nil, types.ErrNilRecord
	case string:
		if strings.TrimSpace(doc) == "" {
			return nil, types.ErrNilRecord
		}
		return []byte(doc), nil
	case map[string]interface{}:
		return json.Marshal(doc)
	default:
		return nil, types.ErrMalformedJSON
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntParam extracts an integer parameter with a default value. JSON
// numbers arrive as float64; a fractional or non-numeric value is rejected
// rather than truncated.
func getIntParam(args map[string]interface{}, key string, defaultValue int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), nil
		}
	}
	return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("%s must be an integer", key), map[string]interface{}{
		"param": key,
		"value": raw,
	})
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
