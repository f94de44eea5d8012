package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dshills/doccontext-mcp/pkg/types"
)

// sqliteSession runs every lookup of one search on a single pinned
// connection. It must never reach back into the pool: with one open
// connection allowed, that would block forever.
type sqliteSession struct {
	conn *sql.Conn
}

const chunkColumns = `s.id, s.title, s.content, s.keywords, s.url`

func (ss *sqliteSession) Close() error {
	return ss.conn.Close()
}

func (ss *sqliteSession) CheckCache(ctx context.Context, query, docName string) ([]types.Chunk, error) {
	rows, err := ss.conn.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM query_cache c
		JOIN sections s ON s.id = c.section_id
		WHERE c.query = ? AND c.doc_name = ?
	`, query, docName)
	if err != nil {
		return nil, fmt.Errorf("failed to check cache: %w", err)
	}
	chunks, err := scanChunks(rows, false)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	_, err = ss.conn.ExecContext(ctx, `
		UPDATE query_cache
		SET hit_count = hit_count + 1, last_used = ?
		WHERE query = ? AND doc_name = ?
	`, time.Now().UTC(), query, docName)
	if err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}
	return chunks, nil
}

func (ss *sqliteSession) UpdateCache(ctx context.Context, query, docName string, sectionID int64) error {
	_, err := ss.conn.ExecContext(ctx, `
		INSERT INTO query_cache (query, doc_name, section_id, hit_count, last_used)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(query, doc_name) DO UPDATE SET
			section_id = excluded.section_id,
			hit_count = 1,
			last_used = excluded.last_used
	`, query, docName, sectionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update cache: %w", err)
	}
	return nil
}

// SearchMetadata ties on priority fall back to section id, i.e. insertion
// order.
func (ss *sqliteSession) SearchMetadata(ctx context.Context, query, docName string, limit int) ([]types.Chunk, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	pattern := likePattern(query)
	sqlQuery := `
		SELECT ` + chunkColumns + `
		FROM sections s
		JOIN documentations d ON d.id = s.doc_id
		WHERE (s.keywords LIKE ? ESCAPE '\' OR s.use_cases LIKE ? ESCAPE '\' OR s.tags LIKE ? ESCAPE '\')
	`
	args := []interface{}{pattern, pattern, pattern}
	sqlQuery, args = applyDocFilter(sqlQuery, args, docName)
	sqlQuery += " ORDER BY s.priority DESC, s.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := ss.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search metadata: %w", err)
	}
	return scanChunks(rows, false)
}

func (ss *sqliteSession) SearchFTS(ctx context.Context, query, docName string, limit int) ([]types.Chunk, error) {
	match := quoteFTSQuery(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	sqlQuery := `
		SELECT ` + chunkColumns + `, bm25(sections_fts) AS score
		FROM sections_fts
		JOIN sections s ON s.id = sections_fts.rowid
		JOIN documentations d ON d.id = s.doc_id
		WHERE sections_fts MATCH ?
	`
	args := []interface{}{match}
	sqlQuery, args = applyDocFilter(sqlQuery, args, docName)
	sqlQuery += " ORDER BY score ASC, s.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := ss.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search text: %w", err)
	}
	return scanChunks(rows, true)
}

func applyDocFilter(query string, args []interface{}, docName string) (string, []interface{}) {
	if docName == "" {
		return query, args
	}
	return query + " AND d.name = ?", append(args, docName)
}

// scanChunks drains and closes rows. withRank expects a trailing rank
// column.
func scanChunks(rows *sql.Rows, withRank bool) ([]types.Chunk, error) {
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var keywords string
		dest := []interface{}{&c.SectionID, &c.Title, &c.Content, &keywords, &c.SourceURL}
		var rank float64
		if withRank {
			dest = append(dest, &rank)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}

		list, err := decodeList(keywords)
		if err != nil {
			return nil, fmt.Errorf("section %d keywords: %w", c.SectionID, err)
		}
		c.Keywords = list
		if withRank {
			c.Rank = &rank
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
