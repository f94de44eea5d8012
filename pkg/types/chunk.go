package types

import "unicode/utf8"

// Chunk is a section as returned by a search: the retrievable content plus
// whatever scoring the resolving stage attached to it.
type Chunk struct {
	SectionID int64    `json:"section_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Keywords  []string `json:"keywords"`
	SourceURL string   `json:"source_url"`

	// Rank is the lexical relevance score (lower is better). Nil for chunks
	// resolved by the cache or metadata stages.
	Rank *float64 `json:"rank,omitempty"`

	// SimilarityScore is the cosine similarity to the query, set only by
	// the hybrid rerank stage.
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// Clone returns a deep copy so callers can attach scores without mutating
// the candidate they were given.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Keywords != nil {
		out.Keywords = append([]string(nil), c.Keywords...)
	}
	if c.Rank != nil {
		r := *c.Rank
		out.Rank = &r
	}
	if c.SimilarityScore != nil {
		s := *c.SimilarityScore
		out.SimilarityScore = &s
	}
	return out
}

// EstimateTokens uses the characters / 4 heuristic.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
