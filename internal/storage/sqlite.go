package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/doccontext-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serializes
	// writers; every pragma below applies to that one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Seeding from the CLI may run while a server holds the file.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens dbPath and brings its schema up to date. Opening
// an existing database is safe: schema initialization is idempotent.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that *sql.DB, *sql.Tx and *sql.Conn implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Document operations

// InsertDocument validates rec and writes the document, its sections and
// their lexical index entries in one transaction. Nothing is visible on
// failure. With replace set, an existing document of the same name is
// deleted inside the same transaction; otherwise a duplicate name returns
// ErrAlreadyExists.
func (s *SQLiteStorage) InsertDocument(ctx context.Context, rec *types.DocumentRecord, replace bool) (*InsertResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if err := deleteDocumentWithQuerier(ctx, tx, rec.Name); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	docID, err := insertDocumentRowWithQuerier(ctx, tx, rec)
	if err != nil {
		return nil, err
	}

	result := &InsertResult{
		DocumentID: docID,
		Sections:   make([]InsertedSection, 0, len(rec.Sections)),
	}
	for i := range rec.Sections {
		id, err := insertSectionWithQuerier(ctx, tx, docID, &rec.Sections[i])
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		result.Sections = append(result.Sections, InsertedSection{ID: id, Content: rec.Sections[i].Content})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit document %s: %w", rec.Name, err)
	}
	return result, nil
}

func insertDocumentRowWithQuerier(ctx context.Context, q querier, rec *types.DocumentRecord) (int64, error) {
	query := `
		INSERT INTO documentations (name, display_name, version, base_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, query, rec.Name, rec.DisplayName, rec.Version, rec.BaseURL, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("document %s: %w", rec.Name, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	return res.LastInsertId()
}

// insertSectionWithQuerier writes one section; the sections_ai trigger adds
// its lexical index entry within the same transaction.
func insertSectionWithQuerier(ctx context.Context, q querier, docID int64, sec *types.SectionRecord) (int64, error) {
	keywords, err := encodeList(sec.Keywords)
	if err != nil {
		return 0, err
	}
	useCases, err := encodeList(sec.UseCases)
	if err != nil {
		return 0, err
	}
	tags, err := encodeList(sec.Tags)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO sections (doc_id, title, path, url, keywords, use_cases, tags, priority, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := q.ExecContext(ctx, query,
		docID, sec.Title, sec.Path, sec.URL, keywords, useCases, tags, *sec.Priority, sec.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to insert section: %w", err)
	}
	return res.LastInsertId()
}

// DeleteDocument removes a document. Its sections, their index entries and
// any cache entries pointing at them go with it.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, name string) error {
	return deleteDocumentWithQuerier(ctx, s.db, name)
}

func deleteDocumentWithQuerier(ctx context.Context, q querier, name string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM documentations WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", name, ErrNotFound)
	}
	return nil
}

// ListDocuments returns every document with its section count, ordered by
// name. Documents without sections report zero.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]types.DocumentSummary, error) {
	query := `
		SELECT d.name, d.display_name, d.version, COUNT(s.id)
		FROM documentations d
		LEFT JOIN sections s ON s.doc_id = d.id
		GROUP BY d.id
		ORDER BY d.name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []types.DocumentSummary{}
	for rows.Next() {
		var d types.DocumentSummary
		var version sql.NullString
		if err := rows.Scan(&d.Name, &d.DisplayName, &version, &d.SectionCount); err != nil {
			return nil, err
		}
		if version.Valid {
			v := version.String
			d.Version = &v
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetCacheEntry returns the cache row for (query, docName) without touching
// its hit counter.
func (s *SQLiteStorage) GetCacheEntry(ctx context.Context, query, docName string) (*CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT query, doc_name, section_id, hit_count, last_used
		FROM query_cache
		WHERE query = ? AND doc_name = ?
	`, query, docName)

	var e CacheEntry
	if err := row.Scan(&e.Query, &e.DocName, &e.SectionID, &e.HitCount, &e.LastUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// OpenSession reserves the connection until the session is closed. The pool
// holds a single connection, so callers must not keep a session open across
// slow work such as a remote embedding call.
func (s *SQLiteStorage) OpenSession(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &sqliteSession{conn: conn}, nil
}

// GetStatus returns store-wide statistics
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documentations", &status.Documents},
		{"SELECT COUNT(*) FROM sections", &status.Sections},
		{"SELECT COUNT(*) FROM sections_fts_docsize", &status.IndexedEntries},
		{"SELECT COUNT(*) FROM query_cache", &status.CacheEntries},
		{"SELECT COALESCE(SUM(hit_count), 0) FROM query_cache", &status.CacheHits},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to query status: %w", err)
		}
	}

	version, err := currentSchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.DatabaseSize = pageCount * pageSize
		}
	}

	return status, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
