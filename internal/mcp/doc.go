// Package mcp implements the Model Context Protocol (MCP) server for doccontext.
//
// The server exposes six tools over stdio:
//   - search_docs: cascade search returning sections plus a transparency block
//   - show_context: the same search rendered as one markdown block
//   - list_docs: indexed documents with section counts
//   - add_doc: ingest a documentation record
//   - delete_doc: remove a document and everything derived from it
//   - get_status: counts and component health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout belongs to the protocol; all logging goes to stderr.
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "name": "search_docs",
//	  "arguments": {"query": "api-key", "doc_name": "acme", "max_results": 5}
//	}
//
//	Response:
//	{
//	  "found": true,
//	  "chunks": [{"section_id": 1, "title": "Auth", "content": "...", ...}],
//	  "transparency": {
//	    "method": "metadata",
//	    "latency_ms": 1,
//	    "search_path": ["cache_miss", "metadata_hit"],
//	    "from_cache": false
//	  }
//	}
//
// A query that matches nothing is a normal response with found=false and
// the full search path, not an error.
//
// # Tool: add_doc
//
// doc_json may be a JSON object or a JSON-encoded string. Validation
// failures come back as a result, not an error:
//
//	{"success": false, "sections_indexed": 0,
//	 "message": "Missing required section field: content in section 0"}
//
// # Error Codes
//
// Parameter problems are returned as *MCPError:
//   - -32602: invalid parameters
//   - -32603: internal error (storage failure)
//   - -32004: empty query
package mcp
