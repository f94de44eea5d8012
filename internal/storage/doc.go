// Package storage provides SQLite-based persistence for documentation sets.
//
// The storage layer manages:
//   - Documents (one per documentation source, unique by name)
//   - Sections with their keywords, use cases and tags
//   - An FTS5 index over section title and content
//   - The query cache consulted first by every search
//
// # Database Schema
//
// Tables:
//   - documentations: name, display name, version, base URL
//   - sections: content units; metadata lists stored as JSON text
//   - sections_fts: external-content FTS5 index kept in sync by triggers
//   - query_cache: (query, doc_name) -> section, with hit count and last use
//
// Deleting a document cascades to its sections, their index entries and any
// cache entries that point at them.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.doccontext/docs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	res, err := db.InsertDocument(ctx, record, false)
//
// # Search Sessions
//
// The cascade search stages run on a Session, which pins one connection
// until closed:
//
//	sess, err := db.OpenSession(ctx)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	chunks, err := sess.CheckCache(ctx, "api-key", "")
//	chunks, err = sess.SearchMetadata(ctx, "api-key", "", 5)
//	chunks, err = sess.SearchFTS(ctx, "api key", "acme", 20)
//
// Metadata matching is a literal substring LIKE over the serialized JSON
// lists. It is deliberately coarse: "auth" matches a keyword "oauth".
//
// # Build Tags
//
// Pure Go build (default): modernc.org/sqlite, no C compiler needed.
//
//	CGO_ENABLED=0 go build -tags "purego"
//
// CGO build: github.com/mattn/go-sqlite3 with FTS5 compiled in.
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
package storage
