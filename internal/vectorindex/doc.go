// Package vectorindex keeps one embedding per documentation section and
// reranks lexical candidates by cosine similarity to the query.
//
// The table lives in memory as an immutable snapshot behind an atomic
// pointer. AddEmbedding builds a new snapshot (copy-on-append) under a
// writer lock and then rewrites both files on disk:
//
//	<data_dir>/embeddings.bin                  float32 table with a row/dimension header
//	<data_dir>/_internal/section_mapping.json  {"<section_id>": row}
//
// Readers never block on writers and never see a partially appended row.
//
// Rerank returns a tagged result so that callers can tell "no semantic
// capability" (StatusUnavailable) from "nothing was similar enough"
// (StatusEmpty). Both send the search back to plain lexical results.
package vectorindex
