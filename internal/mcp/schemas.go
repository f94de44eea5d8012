package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const maxResultsLimit = 50

func docNameProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Restrict the search to one document (see list_docs). Omit to search everything.",
	}
}

// searchDocsTool returns the tool definition for search_docs
func searchDocsTool() mcp.Tool {
	return mcp.Tool{
		Name: "search_docs",
		Description: "Search indexed documentation. Tries the query cache, then section metadata " +
			"(keywords, use cases, tags), then full-text search with optional semantic rerank. " +
			"The transparency block reports which stage answered.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (keywords or a short question)",
				},
				"doc_name": docNameProperty(),
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of sections to return",
					"default":     5,
					"minimum":     1,
					"maximum":     maxResultsLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// showContextTool returns the tool definition for show_context
func showContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "show_context",
		Description: "Search and return the top sections as one markdown block with a token estimate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"doc_name": docNameProperty(),
			},
			Required: []string{"query"},
		},
	}
}

// listDocsTool returns the tool definition for list_docs
func listDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_docs",
		Description: "List indexed documents with their section counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// addDocTool returns the tool definition for add_doc
func addDocTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_doc",
		Description: "Index a documentation record (name, display_name, base_url, sections[])",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"doc_json": map[string]interface{}{
					"description": "The record, as a JSON object or a JSON-encoded string",
				},
				"replace": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, replace an existing document with the same name",
					"default":     false,
				},
			},
			Required: []string{"doc_json"},
		},
	}
}

// deleteDocTool returns the tool definition for delete_doc
func deleteDocTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_doc",
		Description: "Delete a document, its sections and any cached queries pointing at them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Document name",
				},
			},
			Required: []string{"name"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and component health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
