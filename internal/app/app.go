// Package app wires storage, embeddings, ingestion and search into one
// handle shared by the MCP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/doccontext-mcp/internal/config"
	"github.com/dshills/doccontext-mcp/internal/embedder"
	"github.com/dshills/doccontext-mcp/internal/indexer"
	"github.com/dshills/doccontext-mcp/internal/searcher"
	"github.com/dshills/doccontext-mcp/internal/storage"
	"github.com/dshills/doccontext-mcp/internal/vectorindex"
)

// App owns every long-lived component. Close releases them.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Storage  storage.Storage
	Embedder embedder.Embedder // nil when no backend is configured
	Index    *vectorindex.Index
	Indexer  *indexer.Indexer
	Searcher *searcher.Searcher
}

// Status is the health report behind get_status.
type Status struct {
	Documents        int    `json:"documents"`
	Sections         int    `json:"sections"`
	EmbeddedSections int    `json:"embedded_sections"`
	CacheEntries     int    `json:"cache_entries"`
	CacheHits        int    `json:"cache_hits"`
	SchemaVersion    string `json:"schema_version"`
	DatabaseSize     int64  `json:"database_size_bytes"`
	Health           Health `json:"health"`
}

type Health struct {
	DatabaseAccessible  bool `json:"database_accessible"`
	EmbeddingsAvailable bool `json:"embeddings_available"`
	FTSIndexBuilt       bool `json:"fts_index_built"`
}

// Open builds an App from cfg. A missing or broken embedding backend is not
// an error: the App starts in degraded mode and search skips reranking.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb := openEmbedder(cfg, logger)

	index := vectorindex.New(emb, cfg.DataDir, logger.Named("vectors"))
	if err := index.Load(); err != nil {
		logger.Warn("embedding files unreadable, starting with an empty index", zap.Error(err))
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Storage:  store,
		Embedder: emb,
		Index:    index,
		Indexer:  indexer.New(store, index, logger.Named("indexer")),
		Searcher: searcher.NewSearcher(store, index, logger.Named("search")),
	}
	logger.Debug("app opened",
		zap.String("db_path", cfg.DBPath),
		zap.String("data_dir", cfg.DataDir),
		zap.String("driver", storage.DriverName),
		zap.Bool("embeddings", emb != nil))
	return a, nil
}

func openEmbedder(cfg *config.Config, logger *zap.Logger) embedder.Embedder {
	emb, err := embedder.New(cfg.EmbedderConfig())
	switch {
	case err == nil:
		logger.Info("embedding backend ready",
			zap.String("provider", emb.Provider()),
			zap.String("model", emb.Model()))
		return emb
	case errors.Is(err, embedder.ErrNoProviderEnabled):
		logger.Warn("no embedding backend, semantic rerank disabled", zap.Error(err))
	default:
		logger.Warn("embedding backend misconfigured, semantic rerank disabled", zap.Error(err))
	}
	return nil
}

// MaxResults returns n, or the configured default when n is not positive.
func (a *App) MaxResults(n int) int {
	if n > 0 {
		return n
	}
	return a.Config.Search.DefaultMaxResults
}

// Status gathers store counts and component health.
func (a *App) Status(ctx context.Context) (*Status, error) {
	st, err := a.Storage.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Documents:        st.Documents,
		Sections:         st.Sections,
		EmbeddedSections: a.Index.Sections(),
		CacheEntries:     st.CacheEntries,
		CacheHits:        st.CacheHits,
		SchemaVersion:    st.SchemaVersion,
		DatabaseSize:     st.DatabaseSize,
		Health: Health{
			DatabaseAccessible:  true,
			EmbeddingsAvailable: a.Index.Available(),
			FTSIndexBuilt:       st.IndexedEntries == st.Sections,
		},
	}, nil
}

// Close releases the embedder and the store.
func (a *App) Close() error {
	var errs []error
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	errs = append(errs, a.Storage.Close())
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
