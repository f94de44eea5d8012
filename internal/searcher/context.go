package searcher

import (
	"context"
	"strings"

	"github.com/dshills/doccontext-mcp/pkg/types"
)

// ContextResults is the fixed result count for a context preview.
const ContextResults = 5

// ContextPreview is a search rendered as a single markdown block, sized for
// pasting into a prompt.
type ContextPreview struct {
	Query         string             `json:"query"`
	DocName       string             `json:"doc_name,omitempty"`
	Preview       string             `json:"context_preview"`
	TokenEstimate int                `json:"token_estimate"`
	ChunksCount   int                `json:"chunks_count"`
	Transparency  types.Transparency `json:"transparency"`
}

// Context searches for query and concatenates the resolved sections as
// "## title" blocks. A miss yields an empty preview, not an error.
func (s *Searcher) Context(ctx context.Context, query, docName string) (*ContextPreview, error) {
	res, err := s.Search(ctx, SearchRequest{
		Query:      query,
		DocName:    docName,
		MaxResults: ContextResults,
	})
	if err != nil {
		return nil, err
	}

	preview := FormatPreview(res.Chunks)
	return &ContextPreview{
		Query:         query,
		DocName:       docName,
		Preview:       preview,
		TokenEstimate: types.EstimateTokens(preview),
		ChunksCount:   len(res.Chunks),
		Transparency:  res.Transparency,
	}, nil
}

// FormatPreview renders chunks as markdown sections separated by blank lines.
func FormatPreview(chunks []types.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, "## "+c.Title+"\n\n"+c.Content)
	}
	return strings.Join(parts, "\n\n")
}
