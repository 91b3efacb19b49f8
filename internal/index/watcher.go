package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay is how long the watcher waits after the last raw event
// before flushing the accumulated batch. An editor save emits several raw
// events for one logical change; the delay folds them together.
const debounceDelay = 250 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and feeds debounced
// change batches into the index until ctx is cancelled.
//
// The loop runs a small state machine per batch: idle until the first
// event, accumulating while the debounce timer keeps being reset, then a
// flush that hands the batch to Apply. Flushing happens on a separate
// goroutine so events arriving mid-flush start the next batch instead of
// blocking the event channel. New directories created at runtime are added
// to the watch list, and their existing contents are picked up as part of
// the same batch.
func Watch(ctx context.Context, ix *Index, logger *slog.Logger) error {
	root := ix.store.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root.Path()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root.Path()))

	// Flusher goroutine: batches apply in order, off the event loop.
	batches := make(chan []Change, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := range batches {
			ix.Apply(b)
		}
	}()
	defer func() {
		close(batches)
		wg.Wait()
	}()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounceDelay)
			timerC = timer.C
		} else {
			timer.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerC:
			if len(pending) == 0 {
				continue
			}
			batch := classifyPending(ix, pending)
			pending = make(map[string]struct{})
			if len(batch) > 0 {
				logger.Debug("watcher: flushing batch", slog.Int("changes", len(batch)))
				batches <- batch
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					collectDirContents(root.Path(), ev.Name, pending)
				}
			}

			rel, relErr := root.Rel(ev.Name)
			if relErr != nil || rel == "" || rel == "." || hiddenPath(rel) {
				continue
			}
			pending[rel] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// classifyPending turns raw pending paths into logical changes by checking
// current disk state: a path still on disk is an upsert, a missing one is
// a removal. The first half of a rename shows up missing and the second
// half present, so the pair degrades naturally to remove plus create.
func classifyPending(ix *Index, pending map[string]struct{}) []Change {
	changes := make([]Change, 0, len(pending))
	for p := range pending {
		if ix.store.Exists(p) {
			typ := Created
			if _, known := ix.Get(p); known {
				typ = Modified
			}
			changes = append(changes, Change{Type: typ, Path: p})
		} else {
			changes = append(changes, Change{Type: Removed, Path: p})
		}
	}
	return changes
}

// collectDirContents adds every file already inside a newly created
// directory to the pending set; fsnotify only reports the directory
// itself when a tree is moved in.
func collectDirContents(vaultRoot, dirPath string, pending map[string]struct{}) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		pending[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if hidden(seg) {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if hidden(d.Name()) && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
