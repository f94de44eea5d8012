package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after the last event before
// seeding the files that changed.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-seeds record files in a directory as they are created or
// rewritten. Changed files always replace the document they define.
type Watcher struct {
	idx      *Indexer
	dir      string
	opts     SeedOptions
	debounce time.Duration
	logger   *zap.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
	hashes  map[string][32]byte
}

// NewWatcher starts watching dir. Events are only processed once Run is
// called, but none are lost in between.
func NewWatcher(idx *Indexer, dir string, opts SeedOptions, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	opts.Replace = true
	return &Watcher{
		idx:      idx,
		dir:      dir,
		opts:     opts,
		debounce: debounce,
		logger:   idx.logger.With(zap.String("dir", dir)),
		fsw:      fsw,
		pending:  make(map[string]struct{}),
		hashes:   make(map[string][32]byte),
	}, nil
}

// Remember records the current content of files that were just seeded so
// an unchanged rewrite does not trigger another ingestion.
func (w *Watcher) Remember(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		if h, err := hashFile(p); err == nil {
			w.hashes[p] = h
		}
	}
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	w.logger.Info("watching for record changes")
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isRecordFile(ev.Name) {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = struct{}{}
			w.mu.Unlock()
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if retry := w.flush(ctx); retry {
				timer.Reset(w.debounce)
			}
		}
	}
}

// flush seeds pending files whose content changed. It reports true when the
// batch must be retried because another seed run holds the lock.
func (w *Watcher) flush(ctx context.Context) bool {
	w.mu.Lock()
	var paths []string
	for p := range w.pending {
		h, err := hashFile(p)
		if err != nil {
			// Removed or renamed before we got to it.
			delete(w.pending, p)
			continue
		}
		if prev, ok := w.hashes[p]; ok && prev == h {
			delete(w.pending, p)
			continue
		}
		paths = append(paths, p)
	}
	w.mu.Unlock()

	if len(paths) == 0 {
		return false
	}
	sort.Strings(paths)

	report, err := w.idx.Seed(ctx, paths, w.opts)
	if errors.Is(err, ErrSeedInProgress) {
		return true
	}

	w.mu.Lock()
	for _, p := range paths {
		delete(w.pending, p)
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("reseed failed", zap.Strings("files", paths), zap.Error(err))
		return false
	}
	for _, fr := range report.Files {
		if fr.Error != "" {
			w.logger.Warn("record rejected", zap.String("file", fr.File), zap.String("reason", fr.Error))
		}
	}
	w.Remember(paths)
	return false
}

func hashFile(path string) ([32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
