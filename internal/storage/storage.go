package storage

import (
	"context"
	"time"

	"github.com/dshills/doccontext-mcp/pkg/types"
)

// Storage defines the interface for persisting documents and serving the
// lookup stages of a cascade search.
type Storage interface {
	// Document operations
	InsertDocument(ctx context.Context, rec *types.DocumentRecord, replace bool) (*InsertResult, error)
	DeleteDocument(ctx context.Context, name string) error
	ListDocuments(ctx context.Context) ([]types.DocumentSummary, error)

	// Cache inspection
	GetCacheEntry(ctx context.Context, query, docName string) (*CacheEntry, error)

	// OpenSession pins one connection for the duration of a search.
	OpenSession(ctx context.Context) (Session, error)

	GetStatus(ctx context.Context) (*Status, error)
	Close() error
}

// Session is a single search's view of the store. Callers must Close it on
// every exit path.
type Session interface {
	// CheckCache returns the sections cached for (query, docName) and bumps
	// their hit counters. An empty docName matches only entries stored
	// without a filter.
	CheckCache(ctx context.Context, query, docName string) ([]types.Chunk, error)

	// UpdateCache points (query, docName) at sectionID, replacing any
	// existing entry and resetting its hit count to 1.
	UpdateCache(ctx context.Context, query, docName string, sectionID int64) error

	// SearchMetadata substring-matches query against the serialized
	// keywords, use_cases and tags, highest priority first.
	SearchMetadata(ctx context.Context, query, docName string, limit int) ([]types.Chunk, error)

	// SearchFTS runs a ranked full-text match over title and content, best
	// (lowest) rank first. Every query token is a required literal term.
	SearchFTS(ctx context.Context, query, docName string, limit int) ([]types.Chunk, error)

	Close() error
}

// InsertResult identifies the rows written for one document.
type InsertResult struct {
	DocumentID int64
	Sections   []InsertedSection
}

// InsertedSection pairs a new section id with the text to embed for it.
type InsertedSection struct {
	ID      int64
	Content string
}

// CacheEntry is a single row of the query cache.
type CacheEntry struct {
	Query     string
	DocName   string
	SectionID int64
	HitCount  int
	LastUsed  time.Time
}

// Status reports store-wide counts and health.
type Status struct {
	Documents      int
	Sections       int
	IndexedEntries int // rows in the lexical index
	CacheEntries   int
	CacheHits      int
	SchemaVersion  string
	DatabaseSize   int64 // bytes
}
