package searcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/doccontext-mcp/internal/storage"
	"github.com/dshills/doccontext-mcp/internal/vectorindex"
	"github.com/dshills/doccontext-mcp/pkg/types"
)

const (
	// DefaultMaxResults applies when a request leaves MaxResults unset.
	DefaultMaxResults = 5

	// CandidatePoolSize is how many lexical candidates are fetched for
	// reranking, independent of MaxResults.
	CandidatePoolSize = 20
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query      string
	DocName    string // empty searches every document
	MaxResults int
}

// Reranker reorders lexical candidates by semantic similarity.
// *vectorindex.Index implements it.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.Chunk, maxResults int) vectorindex.RerankResult
}

// Searcher resolves queries through the cascade: cache, metadata, lexical,
// then lexical with semantic rerank. The first stage with results answers.
type Searcher struct {
	storage  storage.Storage
	reranker Reranker
	logger   *zap.Logger
}

// NewSearcher creates a Searcher. A nil reranker means semantic reranking
// is unavailable and lexical hits are returned as-is.
func NewSearcher(store storage.Storage, reranker Reranker, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		storage:  store,
		reranker: reranker,
		logger:   logger,
	}
}

// NormalizeQuery lowercases and trims a query. Normalized text is the cache
// key, so "API Key " and "api key" share an entry but "api-key" does not.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Search runs the cascade. "Not found" is a result with Found=false, not
// an error; errors are storage failures. Every result carries a
// Transparency record, including misses.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*types.SearchResult, error) {
	start := time.Now()

	query := NormalizeQuery(req.Query)
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	sess, err := s.storage.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	release := func() {
		if sess != nil {
			_ = sess.Close()
			sess = nil
		}
	}
	defer release()

	res := &types.SearchResult{
		Chunks: []types.Chunk{},
		Transparency: types.Transparency{
			Method:     types.MethodNone,
			SearchPath: []string{},
		},
	}
	finish := func() *types.SearchResult {
		res.Found = len(res.Chunks) > 0
		res.Transparency.LatencyMS = time.Since(start).Milliseconds()
		s.logger.Debug("search resolved",
			zap.String("query", query),
			zap.String("doc", req.DocName),
			zap.String("method", string(res.Transparency.Method)),
			zap.Strings("path", res.Transparency.SearchPath),
			zap.Int("chunks", len(res.Chunks)),
			zap.Int64("latency_ms", res.Transparency.LatencyMS))
		return res
	}
	step := func(entry string) {
		res.Transparency.SearchPath = append(res.Transparency.SearchPath, entry)
	}

	// Cache
	cached, err := sess.CheckCache(ctx, query, req.DocName)
	if err != nil {
		return nil, fmt.Errorf("cache stage: %w", err)
	}
	if len(cached) > 0 {
		step(types.PathCacheHit)
		res.Chunks = cached
		res.Transparency.Method = types.MethodCache
		res.Transparency.FromCache = true
		return finish(), nil
	}
	step(types.PathCacheMiss)

	// Metadata
	meta, err := sess.SearchMetadata(ctx, query, req.DocName, maxResults)
	if err != nil {
		return nil, fmt.Errorf("metadata stage: %w", err)
	}
	if len(meta) > 0 {
		step(types.PathMetadataHit)
		if err := sess.UpdateCache(ctx, query, req.DocName, meta[0].SectionID); err != nil {
			return nil, err
		}
		res.Chunks = meta
		res.Transparency.Method = types.MethodMetadata
		return finish(), nil
	}
	step(types.PathMetadataMiss)

	// Lexical
	candidates, err := sess.SearchFTS(ctx, query, req.DocName, CandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("lexical stage: %w", err)
	}
	if len(candidates) == 0 {
		step(types.PathFTSMiss)
		return finish(), nil
	}
	step(types.PathFTSHit)

	// Embedding the query may block on a remote provider. The store has a
	// single connection, so it is released before reranking.
	release()

	// Rerank, or fall back to the lexical order.
	rr := s.rerank(ctx, query, candidates, maxResults)
	if rr.Status == vectorindex.StatusRanked {
		res.Chunks = rr.Chunks
		res.Transparency.Method = types.MethodHybridRerank
	} else {
		if len(candidates) > maxResults {
			candidates = candidates[:maxResults]
		}
		res.Chunks = candidates
		res.Transparency.Method = types.MethodFTS
		s.logger.Debug("rerank skipped", zap.Stringer("status", rr.Status))
	}

	if err := s.updateCache(ctx, query, req.DocName, res.Chunks[0].SectionID); err != nil {
		return nil, err
	}
	return finish(), nil
}

// updateCache writes a cache entry on its own short-lived session.
func (s *Searcher) updateCache(ctx context.Context, query, docName string, sectionID int64) error {
	sess, err := s.storage.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	return sess.UpdateCache(ctx, query, docName, sectionID)
}

func (s *Searcher) rerank(ctx context.Context, query string, candidates []types.Chunk, maxResults int) vectorindex.RerankResult {
	if s.reranker == nil {
		return vectorindex.RerankResult{Status: vectorindex.StatusUnavailable}
	}
	rr := s.reranker.Rerank(ctx, query, candidates, maxResults)
	if rr.Status == vectorindex.StatusRanked && len(rr.Chunks) == 0 {
		rr.Status = vectorindex.StatusEmpty
	}
	return rr
}
