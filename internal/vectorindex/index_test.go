package vectorindex

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doccontext-mcp/internal/embedder"
	"github.com/dshills/doccontext-mcp/pkg/types"
)

// fakeEmbedder returns fixed vectors per text.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[req.Text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return &embedder.Embedding{Vector: v, Dimension: len(v)}, nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEmbedder) Dimension() int   { return 2 }
func (f *fakeEmbedder) Provider() string { return "fake" }
func (f *fakeEmbedder) Model() string    { return "fake" }
func (f *fakeEmbedder) Close() error     { return nil }

// unit returns a 2-d vector at angle theta, scaled by mag.
func unit(theta, mag float64) []float32 {
	return []float32{float32(mag * math.Cos(theta)), float32(mag * math.Sin(theta))}
}

// angleFor returns the angle whose cosine is sim.
func angleFor(sim float64) float64 { return math.Acos(sim) }

func chunk(id int64) types.Chunk {
	rank := float64(-id)
	return types.Chunk{SectionID: id, Title: "t", Content: "c", Keywords: []string{}, Rank: &rank}
}

func TestRerank_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("no embedder", func(t *testing.T) {
		ix := New(nil, t.TempDir(), nil)
		assert.False(t, ix.Available())
		require.NoError(t, ix.AddEmbedding(ctx, 1, "text"))
		assert.Equal(t, 0, ix.Len())

		res := ix.Rerank(ctx, "q", []types.Chunk{chunk(1)}, 5)
		assert.Equal(t, StatusUnavailable, res.Status)
		assert.Empty(t, res.Chunks)
	})

	t.Run("empty table", func(t *testing.T) {
		ix := New(&fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}, t.TempDir(), nil)
		res := ix.Rerank(ctx, "q", []types.Chunk{chunk(1)}, 5)
		assert.Equal(t, StatusUnavailable, res.Status)
	})

	t.Run("query embedding fails", func(t *testing.T) {
		fake := &fakeEmbedder{vectors: map[string][]float32{"doc": {1, 0}}}
		ix := New(fake, t.TempDir(), nil)
		require.NoError(t, ix.AddEmbedding(ctx, 1, "doc"))

		fake.err = errors.New("backend down")
		res := ix.Rerank(ctx, "q", []types.Chunk{chunk(1)}, 5)
		assert.Equal(t, StatusUnavailable, res.Status)
	})
}

func TestRerank_Threshold(t *testing.T) {
	ctx := context.Background()

	sims := map[int64]float64{
		1: 0.95,
		2: 0.295,
		3: 0.305,
		4: 0.60,
		5: -0.8,
		6: 0.31,
	}
	fake := &fakeEmbedder{vectors: map[string][]float32{"q": unit(0, 1)}}
	for id, sim := range sims {
		// Magnitudes differ so raw dot products would rank differently.
		fake.vectors[textFor(id)] = unit(angleFor(sim), float64(10-id))
	}

	ix := New(fake, t.TempDir(), nil)
	var candidates []types.Chunk
	for id := int64(1); id <= 6; id++ {
		require.NoError(t, ix.AddEmbedding(ctx, id, textFor(id)))
		candidates = append(candidates, chunk(id))
	}
	candidates = append(candidates, chunk(99)) // never embedded

	res := ix.Rerank(ctx, "q", candidates, 10)
	require.Equal(t, StatusRanked, res.Status)

	var ids []int64
	for _, c := range res.Chunks {
		ids = append(ids, c.SectionID)
		require.NotNil(t, c.SimilarityScore)
		assert.InDelta(t, sims[c.SectionID], *c.SimilarityScore, 1e-5)
		require.NotNil(t, c.Rank, "original fields preserved")
	}
	assert.Equal(t, []int64{1, 4, 6, 3}, ids)

	for _, c := range candidates {
		assert.Nil(t, c.SimilarityScore, "candidates are not mutated")
	}

	t.Run("truncates to max", func(t *testing.T) {
		res := ix.Rerank(ctx, "q", candidates, 2)
		require.Equal(t, StatusRanked, res.Status)
		require.Len(t, res.Chunks, 2)
		assert.Equal(t, int64(1), res.Chunks[0].SectionID)
		assert.Equal(t, int64(4), res.Chunks[1].SectionID)
	})

	t.Run("nothing qualifies", func(t *testing.T) {
		res := ix.Rerank(ctx, "q", []types.Chunk{chunk(2), chunk(5), chunk(99)}, 5)
		assert.Equal(t, StatusEmpty, res.Status)
		assert.Empty(t, res.Chunks)
	})
}

func TestAddEmbedding_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	fake := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {1, 0, 0},
	}}
	ix := New(fake, t.TempDir(), nil)

	require.NoError(t, ix.AddEmbedding(ctx, 1, "a"))
	err := ix.AddEmbedding(ctx, 2, "b")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, ix.Len())
	assert.False(t, ix.Has(2))
}

func TestAddEmbedding_WriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fake := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}}}
	ix := New(fake, dir, nil)
	require.NoError(t, ix.AddEmbedding(ctx, 1, "a"))

	// A directory in place of the vector file makes the rename fail.
	vecPath := filepath.Join(dir, VectorsFile)
	require.NoError(t, os.Remove(vecPath))
	require.NoError(t, os.MkdirAll(filepath.Join(vecPath, "blocker"), 0o755))

	err := ix.AddEmbedding(ctx, 2, "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist embeddings")
	assert.Equal(t, 1, ix.Len())
	assert.False(t, ix.Has(2))
	assert.True(t, ix.Has(1))
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fake := &fakeEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"q": {1, 0.1},
	}}

	ix := New(fake, dir, nil)
	require.NoError(t, ix.AddEmbedding(ctx, 10, "a"))
	require.NoError(t, ix.AddEmbedding(ctx, 20, "b"))
	require.NoError(t, ix.AddEmbedding(ctx, 10, "b")) // re-embed: latest wins

	assert.FileExists(t, filepath.Join(dir, VectorsFile))
	assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(MappingFile)))

	reloaded := New(fake, dir, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 3, reloaded.Len())
	assert.Equal(t, 2, reloaded.Sections())
	assert.True(t, reloaded.Has(10))
	assert.True(t, reloaded.Has(20))

	snap := reloaded.snap.Load()
	assert.Equal(t, []float32{0, 1}, snap.vectors[snap.rows[10]])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "no temp files left behind")
	}
}

func TestLoad_Degrades(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		ix := New(&fakeEmbedder{}, t.TempDir(), nil)
		require.NoError(t, ix.Load())
		assert.Equal(t, 0, ix.Len())
	})

	t.Run("corrupt vectors", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeFileAtomic(filepath.Join(dir, VectorsFile), []byte("garbage")))
		require.NoError(t, writeFileAtomic(filepath.Join(dir, filepath.FromSlash(MappingFile)), []byte(`{}`)))

		ix := New(&fakeEmbedder{}, dir, nil)
		err := ix.Load()
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Equal(t, 0, ix.Len())
	})

	t.Run("mapping points past table", func(t *testing.T) {
		dir := t.TempDir()
		snap := &snapshot{vectors: [][]float32{{1, 0}}, rows: map[int64]int{1: 0}, dim: 2}
		require.NoError(t, writeSnapshot(filepath.Join(dir, VectorsFile), filepath.Join(dir, filepath.FromSlash(MappingFile)), snap))
		require.NoError(t, writeFileAtomic(filepath.Join(dir, filepath.FromSlash(MappingFile)), []byte(`{"1": 5}`)))

		ix := New(&fakeEmbedder{}, dir, nil)
		assert.ErrorIs(t, ix.Load(), ErrCorrupt)
		assert.Equal(t, 0, ix.Len())
	})

	t.Run("only one file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeFileAtomic(filepath.Join(dir, filepath.FromSlash(MappingFile)), []byte(`{}`)))

		ix := New(&fakeEmbedder{}, dir, nil)
		assert.Error(t, ix.Load())
		assert.Equal(t, 0, ix.Len())
	})
}

func TestConcurrentAddAndRerank(t *testing.T) {
	ctx := context.Background()
	fake := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	for id := int64(0); id < 50; id++ {
		fake.vectors[textFor(id)] = []float32{1, float32(id) / 100}
	}
	ix := New(fake, t.TempDir(), nil)
	require.NoError(t, ix.AddEmbedding(ctx, 0, textFor(0)))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for id := int64(1); id < 50; id++ {
			assert.NoError(t, ix.AddEmbedding(ctx, id, textFor(id)))
		}
	}()
	go func() {
		defer wg.Done()
		candidates := []types.Chunk{chunk(0), chunk(10), chunk(49)}
		for i := 0; i < 100; i++ {
			res := ix.Rerank(ctx, "q", candidates, 5)
			assert.Equal(t, StatusRanked, res.Status)
		}
	}()
	wg.Wait()

	assert.Equal(t, 50, ix.Len())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unavailable", StatusUnavailable.String())
	assert.Equal(t, "empty", StatusEmpty.String())
	assert.Equal(t, "ranked", StatusRanked.String())
}

func textFor(id int64) string {
	return "section-" + string(rune('a'+id%26)) + string(rune('a'+id/26))
}
