package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/doccontext-mcp/internal/embedder"
	"github.com/dshills/doccontext-mcp/pkg/types"
)

// SimilarityThreshold is the minimum cosine similarity a candidate needs to
// survive reranking.
const SimilarityThreshold = 0.3

// File names under the data directory.
const (
	VectorsFile = "embeddings.bin"
	MappingFile = "_internal/section_mapping.json"
)

var ErrDimensionMismatch = errors.New("embedding dimension does not match index")

// Status distinguishes "could not rerank" from "reranked to nothing".
type Status int

const (
	// StatusUnavailable: no embedder, no stored vectors, or the query
	// could not be embedded.
	StatusUnavailable Status = iota
	// StatusEmpty: reranking ran and no candidate passed the threshold.
	StatusEmpty
	// StatusRanked: at least one candidate passed.
	StatusRanked
)

func (s Status) String() string {
	switch s {
	case StatusUnavailable:
		return "unavailable"
	case StatusEmpty:
		return "empty"
	case StatusRanked:
		return "ranked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// RerankResult is the outcome of Rerank. Chunks is non-empty only for
// StatusRanked.
type RerankResult struct {
	Status Status
	Chunks []types.Chunk
}

// snapshot is an immutable view of the table. Appends build a new snapshot;
// readers never see a partially written row.
type snapshot struct {
	vectors [][]float32
	rows    map[int64]int
	dim     int
}

func (s *snapshot) len() int { return len(s.vectors) }

// Index holds one vector per embedded section, persisted to a vector file and
// a section-id mapping file that are rewritten in full on every addition.
type Index struct {
	embedder    embedder.Embedder
	vectorsPath string
	mappingPath string
	logger      *zap.Logger

	snap atomic.Pointer[snapshot]
	mu   sync.Mutex // serializes appends and file writes
}

// New creates an empty index stored under dataDir. A nil embedder puts the
// index in the degraded state: AddEmbedding is a no-op and Rerank always
// reports StatusUnavailable.
func New(emb embedder.Embedder, dataDir string, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Index{
		embedder:    emb,
		vectorsPath: filepath.Join(dataDir, VectorsFile),
		mappingPath: filepath.Join(dataDir, filepath.FromSlash(MappingFile)),
		logger:      logger,
	}
	ix.snap.Store(&snapshot{rows: map[int64]int{}})
	return ix
}

// Available reports whether an embedding backend is configured.
func (ix *Index) Available() bool {
	return ix.embedder != nil
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	return ix.snap.Load().len()
}

// Dimension returns the vector size of the stored table, or 0 when empty.
func (ix *Index) Dimension() int {
	return ix.snap.Load().dim
}

// Sections returns the number of sections with a vector.
func (ix *Index) Sections() int {
	return len(ix.snap.Load().rows)
}

// Has reports whether sectionID has a stored vector.
func (ix *Index) Has(sectionID int64) bool {
	_, ok := ix.snap.Load().rows[sectionID]
	return ok
}

// Load replaces the in-memory table with the persisted one. Missing files
// leave the index empty without error. Unreadable or inconsistent files also
// leave it empty; the error is returned for the caller to log.
func (ix *Index) Load() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	snap, err := readSnapshot(ix.vectorsPath, ix.mappingPath)
	if err != nil {
		ix.snap.Store(&snapshot{rows: map[int64]int{}})
		return err
	}
	ix.snap.Store(snap)
	ix.logger.Info("embedding index loaded",
		zap.Int("vectors", snap.len()),
		zap.Int("dimension", snap.dim))
	return nil
}

// AddEmbedding embeds text and records it as sectionID's vector. Without an
// embedder it does nothing. A section embedded twice keeps its latest
// vector; the earlier row stays in the table unreferenced.
func (ix *Index) AddEmbedding(ctx context.Context, sectionID int64, text string) error {
	if ix.embedder == nil {
		return nil
	}

	emb, err := ix.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return fmt.Errorf("embed section %d: %w", sectionID, err)
	}
	if len(emb.Vector) == 0 {
		return fmt.Errorf("embed section %d: %w", sectionID, embedder.ErrProviderFailed)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	cur := ix.snap.Load()
	if cur.dim != 0 && len(emb.Vector) != cur.dim {
		return fmt.Errorf("section %d: %w: got %d, want %d", sectionID, ErrDimensionMismatch, len(emb.Vector), cur.dim)
	}

	next := &snapshot{
		vectors: make([][]float32, cur.len(), cur.len()+1),
		rows:    make(map[int64]int, len(cur.rows)+1),
		dim:     len(emb.Vector),
	}
	copy(next.vectors, cur.vectors)
	for id, row := range cur.rows {
		next.rows[id] = row
	}
	next.vectors = append(next.vectors, emb.Vector)
	next.rows[sectionID] = len(next.vectors) - 1

	// Disk first: a failed write leaves memory matching the files.
	if err := writeSnapshot(ix.vectorsPath, ix.mappingPath, next); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}
	ix.snap.Store(next)
	return nil
}

// Rerank scores candidates by cosine similarity to query, drops those below
// SimilarityThreshold and candidates without a stored vector, and returns the
// rest best first, at most maxResults of them. Ties keep candidate order.
// Every failure degrades to StatusUnavailable.
func (ix *Index) Rerank(ctx context.Context, query string, candidates []types.Chunk, maxResults int) RerankResult {
	snap := ix.snap.Load()
	if ix.embedder == nil || snap.len() == 0 {
		return RerankResult{Status: StatusUnavailable}
	}

	emb, err := ix.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil || len(emb.Vector) == 0 {
		ix.logger.Warn("query embedding failed, skipping rerank", zap.Error(err))
		return RerankResult{Status: StatusUnavailable}
	}
	q := embedder.NormalizeVector(emb.Vector)

	type scored struct {
		chunk types.Chunk
		score float64
	}
	var kept []scored
	for _, c := range candidates {
		row, ok := snap.rows[c.SectionID]
		if !ok {
			continue
		}
		v := snap.vectors[row]
		if len(v) != len(q) {
			continue
		}
		score := dot(q, embedder.NormalizeVector(v))
		if score < SimilarityThreshold {
			continue
		}
		kept = append(kept, scored{chunk: c, score: score})
	}

	if len(kept) == 0 {
		return RerankResult{Status: StatusEmpty}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})
	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}

	out := make([]types.Chunk, len(kept))
	for i, k := range kept {
		c := k.chunk.Clone()
		s := k.score
		c.SimilarityScore = &s
		out[i] = c
	}
	return RerankResult{Status: StatusRanked, Chunks: out}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
