// Package indexer ingests documentation records into the store and the
// embedding index.
//
// A record is validated first; the first missing required field is reported
// as a failed Result, never as an error. Valid records are written in a
// single transaction, after which every new section is embedded. Embedding
// is best effort: failures are logged and the document stays searchable by
// the cache, metadata and full-text stages.
//
// # Seeding
//
//	idx := indexer.New(store, vectors, logger)
//
//	files, _ := indexer.DiscoverFiles(dataDir)
//	report, err := idx.Seed(ctx, files, indexer.SeedOptions{Replace: true})
//
//	fmt.Printf("%d indexed, %d failed in %v\n",
//	    report.Indexed, report.Failed, report.Duration)
//
// Files are loaded concurrently and inserted in path order. Only one seed
// run may be active at a time; a concurrent call gets ErrSeedInProgress.
//
// # Watch Mode
//
// A Watcher re-seeds files in a directory as they are created or rewritten,
// after a short debounce. Files whose content hash has not changed since
// they were last seeded are skipped.
package indexer
