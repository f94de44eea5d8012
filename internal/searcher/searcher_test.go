package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doccontext-mcp/internal/storage"
	"github.com/dshills/doccontext-mcp/internal/vectorindex"
	"github.com/dshills/doccontext-mcp/pkg/types"
)

// mockSession serves canned stage results and records what was asked of it.
type mockSession struct {
	cache    []types.Chunk
	meta     []types.Chunk
	fts      []types.Chunk
	cacheErr error

	calls      []string
	ftsLimit   int
	cachedID   int64
	cachedKey  [2]string
	closeCount int
}

func (m *mockSession) CheckCache(ctx context.Context, query, docName string) ([]types.Chunk, error) {
	m.calls = append(m.calls, "cache")
	return m.cache, m.cacheErr
}

func (m *mockSession) UpdateCache(ctx context.Context, query, docName string, sectionID int64) error {
	m.calls = append(m.calls, "update")
	m.cachedID = sectionID
	m.cachedKey = [2]string{query, docName}
	return nil
}

func (m *mockSession) SearchMetadata(ctx context.Context, query, docName string, limit int) ([]types.Chunk, error) {
	m.calls = append(m.calls, "metadata")
	return m.meta, nil
}

func (m *mockSession) SearchFTS(ctx context.Context, query, docName string, limit int) ([]types.Chunk, error) {
	m.calls = append(m.calls, "fts")
	m.ftsLimit = limit
	return m.fts, nil
}

func (m *mockSession) Close() error {
	m.closeCount++
	return nil
}

type mockStorage struct {
	storage.Storage
	sess  *mockSession
	opens int
}

func (m *mockStorage) OpenSession(ctx context.Context) (storage.Session, error) {
	m.opens++
	return m.sess, nil
}

// openSessions is the number of sessions handed out and not yet closed.
func (m *mockStorage) openSessions() int {
	return m.opens - m.sess.closeCount
}

type mockReranker struct {
	result vectorindex.RerankResult
	got    []types.Chunk

	store        *mockStorage
	openAtRerank int
}

func (m *mockReranker) Rerank(ctx context.Context, query string, candidates []types.Chunk, maxResults int) vectorindex.RerankResult {
	m.got = candidates
	if m.store != nil {
		m.openAtRerank = m.store.openSessions()
	}
	return m.result
}

func chunks(ids ...int64) []types.Chunk {
	out := make([]types.Chunk, len(ids))
	for i, id := range ids {
		out[i] = types.Chunk{SectionID: id, Title: "s", Content: "c"}
	}
	return out
}

func ids(cs []types.Chunk) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.SectionID
	}
	return out
}

func TestSearch_CacheHit(t *testing.T) {
	sess := &mockSession{cache: chunks(7)}
	s := NewSearcher(&mockStorage{sess: sess}, nil, nil)

	res, err := s.Search(context.Background(), SearchRequest{Query: "  API Key "})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, types.MethodCache, res.Transparency.Method)
	assert.True(t, res.Transparency.FromCache)
	assert.Equal(t, []string{types.PathCacheHit}, res.Transparency.SearchPath)
	assert.Equal(t, []string{"cache"}, sess.calls)
	assert.Equal(t, 1, sess.closeCount)
}

func TestSearch_MetadataHitSkipsLexical(t *testing.T) {
	sess := &mockSession{meta: chunks(3, 4), fts: chunks(9)}
	s := NewSearcher(&mockStorage{sess: sess}, nil, nil)

	res, err := s.Search(context.Background(), SearchRequest{Query: "API-Key", DocName: "acme"})
	require.NoError(t, err)

	assert.Equal(t, types.MethodMetadata, res.Transparency.Method)
	assert.False(t, res.Transparency.FromCache)
	assert.Equal(t, []string{types.PathCacheMiss, types.PathMetadataHit}, res.Transparency.SearchPath)
	assert.Equal(t, []int64{3, 4}, ids(res.Chunks))
	assert.Equal(t, []string{"cache", "metadata", "update"}, sess.calls)
	assert.Equal(t, int64(3), sess.cachedID)
	assert.Equal(t, [2]string{"api-key", "acme"}, sess.cachedKey)
}

func TestSearch_LexicalFallback(t *testing.T) {
	tests := []struct {
		name     string
		reranker Reranker
	}{
		{"no reranker", nil},
		{"unavailable", &mockReranker{result: vectorindex.RerankResult{Status: vectorindex.StatusUnavailable}}},
		{"nothing above threshold", &mockReranker{result: vectorindex.RerankResult{Status: vectorindex.StatusEmpty}}},
		{"ranked but empty", &mockReranker{result: vectorindex.RerankResult{Status: vectorindex.StatusRanked}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &mockSession{fts: chunks(1, 2, 3, 4, 5, 6, 7)}
			s := NewSearcher(&mockStorage{sess: sess}, tt.reranker, nil)

			res, err := s.Search(context.Background(), SearchRequest{Query: "auth", MaxResults: 3})
			require.NoError(t, err)

			assert.Equal(t, types.MethodFTS, res.Transparency.Method)
			assert.Equal(t, []int64{1, 2, 3}, ids(res.Chunks))
			assert.Equal(t, CandidatePoolSize, sess.ftsLimit)
			assert.Equal(t, int64(1), sess.cachedID)
			assert.Equal(t, []string{types.PathCacheMiss, types.PathMetadataMiss, types.PathFTSHit}, res.Transparency.SearchPath)
		})
	}
}

func TestSearch_HybridRerank(t *testing.T) {
	score := 0.9
	ranked := []types.Chunk{{SectionID: 5, SimilarityScore: &score}, {SectionID: 2}}
	sess := &mockSession{fts: chunks(2, 5, 8)}
	store := &mockStorage{sess: sess}
	rr := &mockReranker{result: vectorindex.RerankResult{Status: vectorindex.StatusRanked, Chunks: ranked}, store: store}
	rr.openAtRerank = -1
	s := NewSearcher(store, rr, nil)

	res, err := s.Search(context.Background(), SearchRequest{Query: "auth"})
	require.NoError(t, err)

	assert.Equal(t, 0, rr.openAtRerank, "no session is held while reranking")
	assert.Equal(t, 0, store.openSessions())
	assert.Equal(t, []string{"cache", "metadata", "fts", "update"}, sess.calls)

	assert.Equal(t, types.MethodHybridRerank, res.Transparency.Method)
	assert.Equal(t, []int64{5, 2}, ids(res.Chunks))
	assert.Equal(t, []int64{2, 5, 8}, ids(rr.got), "reranker sees the full candidate pool")
	assert.Equal(t, int64(5), sess.cachedID)
}

func TestSearch_TotalMiss(t *testing.T) {
	sess := &mockSession{}
	s := NewSearcher(&mockStorage{sess: sess}, nil, nil)

	res, err := s.Search(context.Background(), SearchRequest{Query: "nothing"})
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Empty(t, res.Chunks)
	assert.NotNil(t, res.Chunks)
	assert.Equal(t, types.MethodNone, res.Transparency.Method)
	assert.Equal(t, []string{types.PathCacheMiss, types.PathMetadataMiss, types.PathFTSMiss}, res.Transparency.SearchPath)
	assert.NotContains(t, sess.calls, "update")
}

func TestSearch_StageErrorClosesSession(t *testing.T) {
	boom := errors.New("disk I/O error")
	sess := &mockSession{cacheErr: boom}
	s := NewSearcher(&mockStorage{sess: sess}, nil, nil)

	_, err := s.Search(context.Background(), SearchRequest{Query: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sess.closeCount)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "api key", NormalizeQuery("  API Key\t"))
	assert.NotEqual(t, NormalizeQuery("api key"), NormalizeQuery("api-key"))
}

func TestFormatPreview(t *testing.T) {
	assert.Equal(t, "", FormatPreview(nil))
	got := FormatPreview([]types.Chunk{
		{Title: "Auth", Content: "Use a key."},
		{Title: "Errors", Content: "401 means bad key."},
	})
	assert.Equal(t, "## Auth\n\nUse a key.\n\n## Errors\n\n401 means bad key.", got)
}
