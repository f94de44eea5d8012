// Package types provides shared type definitions for the doccontext server.
//
// # Ingestion Records
//
// DocumentRecord and SectionRecord are the contract between the ingestion
// pipeline and the store:
//
//	{
//	  "name": "acme", "display_name": "Acme", "version": "2.1", "base_url": "https://acme.dev",
//	  "sections": [{
//	    "title": "Auth", "path": "auth", "url": "https://acme.dev/auth",
//	    "keywords": ["auth", "api-key"], "use_cases": ["login"], "tags": ["security"],
//	    "priority": 10, "content": "Use API keys for authentication"
//	  }]
//	}
//
// All document fields except version, and all section fields, are required.
// ParseRecord and DocumentRecord.Validate report the first missing field as a
// *ValidationError naming the field and, for section fields, the section's
// zero-based position.
//
// # Search Results
//
// SearchResult carries the resolved chunks and a Transparency record naming
// the stage that answered (cache, metadata, fts, hybrid_rerank, or empty for a
// miss), the ordered search path, the latency and whether the cache served it.
package types
