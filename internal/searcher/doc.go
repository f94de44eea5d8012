// Package searcher resolves documentation queries through a fixed cascade of
// progressively more expensive stages.
//
// # Cascade
//
// Each query is lowercased and trimmed, then tried against:
//
//  1. the query cache, keyed by (query, document filter)
//  2. metadata: substring match over section keywords, use cases and tags
//  3. full-text: ranked match over title and content, 20 candidates
//  4. semantic rerank of those candidates, when an embedding backend exists
//
// The first stage that yields sections answers the query. Metadata and
// full-text answers write their top section back to the cache, so a repeated
// query is served by stage 1. When reranking is unavailable or leaves
// nothing above the similarity threshold, the full-text order is returned.
// The storage session is closed before the query is embedded for reranking.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, index, logger)
//
//	res, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:      "api-key",
//	    DocName:    "acme",
//	    MaxResults: 5,
//	})
//
//	fmt.Println(res.Transparency.Method, res.Transparency.SearchPath)
//
// Every result carries a Transparency record naming the resolving stage and
// the path taken, misses included.
package searcher
