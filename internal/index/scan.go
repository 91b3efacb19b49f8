package index

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/whitfield/tome/internal/vault"
)

// Rebuild replaces the whole index with a fresh scan of the vault.
// Parsing runs in parallel; the swap to the new state happens under the
// write lock in one step.
func (ix *Index) Rebuild(ctx context.Context) error {
	entries, err := ix.store.List("")
	if err != nil {
		return fmt.Errorf("index: scan: %w", err)
	}

	assets := make([]*Asset, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			assets[i] = parseAsset(ix.store, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("index: scan: %w", err)
	}

	ix.mu.Lock()
	ix.reset()
	for _, a := range assets {
		ix.assets[a.Path] = a
		ix.addResolverEntry(a)
	}
	paths := make([]string, 0, len(assets))
	pages := 0
	for _, a := range assets {
		if a.Kind == vault.KindPage {
			ix.connect(a)
			pages++
		}
		paths = append(paths, a.Path)
	}
	ix.mu.Unlock()

	ix.log.Info("vault scan complete",
		"assets", len(assets),
		"pages", pages,
	)
	ix.notify(paths)
	return nil
}
