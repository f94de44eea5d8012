package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/doccontext-mcp/internal/storage"
	"github.com/dshills/doccontext-mcp/pkg/types"
)

// ErrSeedInProgress is returned when a seed run is already active.
var ErrSeedInProgress = errors.New("seed already in progress")

// VectorIndex receives section text after its document is committed.
// *vectorindex.Index implements it.
type VectorIndex interface {
	AddEmbedding(ctx context.Context, sectionID int64, text string) error
}

// Indexer coordinates the ingestion pipeline: validate -> store -> embed
type Indexer struct {
	storage storage.Storage
	vectors VectorIndex
	logger  *zap.Logger

	lock IndexLock
}

// Result is the structured outcome of ingesting one record. Validation and
// duplicate-name failures are reported here rather than as errors.
type Result struct {
	Success         bool   `json:"success"`
	DocumentID      int64  `json:"doc_id,omitempty"`
	SectionsIndexed int    `json:"sections_indexed"`
	Message         string `json:"message"`
}

// SeedOptions controls a seed run.
type SeedOptions struct {
	Replace bool // re-ingest documents whose name already exists
	Workers int  // concurrent file loaders (default: runtime.NumCPU())
}

// FileResult reports what happened to one file during a seed run.
type FileResult struct {
	File     string `json:"file"`
	Document string `json:"document,omitempty"`
	Sections int    `json:"sections"`
	Error    string `json:"error,omitempty"`
}

// SeedReport summarizes a seed run.
type SeedReport struct {
	Files    []FileResult
	Indexed  int
	Failed   int
	Duration time.Duration
}

// New creates an Indexer. vectors may be nil, in which case sections are
// stored without embeddings.
func New(store storage.Storage, vectors VectorIndex, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		storage: store,
		vectors: vectors,
		logger:  logger,
	}
}

// InsertJSON parses a raw record and ingests it.
func (idx *Indexer) InsertJSON(ctx context.Context, data []byte, replace bool) (*Result, error) {
	rec, err := types.ParseRecord(data)
	if err != nil {
		return failure(err), nil
	}
	return idx.InsertRecord(ctx, rec, replace)
}

// InsertRecord validates rec, writes it in one transaction and then embeds
// each new section. Embedding failures are logged and never undo the insert.
// The returned error is non-nil only for storage failures.
func (idx *Indexer) InsertRecord(ctx context.Context, rec *types.DocumentRecord, replace bool) (*Result, error) {
	if rec == nil {
		return failure(types.ErrNilRecord), nil
	}
	if err := rec.Validate(); err != nil {
		return failure(err), nil
	}

	ins, err := idx.storage.InsertDocument(ctx, rec, replace)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return failure(fmt.Errorf("document %q already exists", rec.Name)), nil
		}
		return nil, fmt.Errorf("insert document %s: %w", rec.Name, err)
	}

	idx.embedSections(ctx, ins.Sections)

	idx.logger.Info("document indexed",
		zap.String("name", rec.Name),
		zap.Int64("id", ins.DocumentID),
		zap.Int("sections", len(ins.Sections)),
		zap.Bool("replace", replace))

	return &Result{
		Success:         true,
		DocumentID:      ins.DocumentID,
		SectionsIndexed: len(ins.Sections),
		Message:         fmt.Sprintf("Indexed %s with %d sections", rec.Name, len(ins.Sections)),
	}, nil
}

func (idx *Indexer) embedSections(ctx context.Context, sections []storage.InsertedSection) {
	if idx.vectors == nil {
		return
	}
	for _, sec := range sections {
		if err := idx.vectors.AddEmbedding(ctx, sec.ID, sec.Content); err != nil {
			idx.logger.Warn("section not embedded",
				zap.Int64("section_id", sec.ID),
				zap.Error(err))
		}
	}
}

// Seed ingests the given JSON files. Files are read and validated
// concurrently, then inserted one at a time in path order so document ids
// are deterministic. A failing file is reported and skipped; only context
// cancellation or a storage failure aborts the run.
func (idx *Indexer) Seed(ctx context.Context, paths []string, opts SeedOptions) (*SeedReport, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrSeedInProgress
	}
	defer idx.lock.Release()

	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths = append([]string(nil), paths...)
	sort.Strings(paths)

	records := make([]*types.DocumentRecord, len(paths))
	loadErrs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i], loadErrs[i] = loadRecord(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &SeedReport{Files: make([]FileResult, 0, len(paths))}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fr := FileResult{File: path}
		if loadErrs[i] != nil {
			fr.Error = capitalize(loadErrs[i].Error())
			report.Failed++
			report.Files = append(report.Files, fr)
			continue
		}

		fr.Document = records[i].Name
		res, err := idx.InsertRecord(ctx, records[i], opts.Replace)
		if err != nil {
			return nil, err
		}
		if res.Success {
			fr.Sections = res.SectionsIndexed
			report.Indexed++
		} else {
			fr.Error = res.Message
			report.Failed++
		}
		report.Files = append(report.Files, fr)
	}

	report.Duration = time.Since(start)
	idx.logger.Info("seed complete",
		zap.Int("files", len(paths)),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// DiscoverFiles returns every *.json file under dir, sorted. Hidden and
// underscore-prefixed directories are skipped; the embedding mapping lives
// in one of those.
func DiscoverFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isRecordFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func isRecordFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}

func loadRecord(path string) (*types.DocumentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return types.ParseRecord(data)
}

func failure(err error) *Result {
	return &Result{Success: false, Message: capitalize(err.Error())}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
