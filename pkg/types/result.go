package types

// Method names the cascade stage that resolved a search.
type Method string

const (
	MethodNone         Method = ""
	MethodCache        Method = "cache"
	MethodMetadata     Method = "metadata"
	MethodFTS          Method = "fts"
	MethodHybridRerank Method = "hybrid_rerank"
)

// Search path entries, appended in the order stages run.
const (
	PathCacheHit     = "cache_hit"
	PathCacheMiss    = "cache_miss"
	PathMetadataHit  = "metadata_hit"
	PathMetadataMiss = "metadata_miss"
	PathFTSHit       = "fts_hit"
	PathFTSMiss      = "fts_miss"
)

// Transparency describes how a search was resolved. Every search produces
// one, including total misses.
type Transparency struct {
	Method     Method   `json:"method"`
	LatencyMS  int64    `json:"latency_ms"`
	SearchPath []string `json:"search_path"`
	FromCache  bool     `json:"from_cache"`
}

// SearchResult is the outcome of a cascade search.
type SearchResult struct {
	Found        bool         `json:"found"`
	Chunks       []Chunk      `json:"chunks"`
	Transparency Transparency `json:"transparency"`
}

// DocumentSummary is one row of a document listing.
type DocumentSummary struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"display_name"`
	Version      *string `json:"version"`
	SectionCount int     `json:"section_count"`
}
