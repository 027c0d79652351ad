package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sema-sh/sema/internal/search"
	"github.com/sema-sh/sema/internal/watcher"
)

// applyBatches drains watcher batches into coordinator updates until
// the predicate holds or the deadline passes.
func applyBatches(t *testing.T, p *pipeline, w *watcher.Watcher, ok func() bool) {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(5 * time.Second)
	for {
		if ok() {
			return
		}
		select {
		case batch := <-w.Batches():
			paths := make([]string, 0, len(batch))
			for _, ev := range batch {
				paths = append(paths, ev.Path)
			}
			_, err := p.coord.Update(ctx, paths)
			require.NoError(t, err)
		case <-deadline:
			t.Fatal("watcher batches never produced the expected index state")
		}
	}
}

func TestWatcherFeedsIncrementalIndexing(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.write(t, "seed.md", "Seed content describes weather balloons drifting east at dawn.")

	_, err := p.coord.Run(ctx)
	require.NoError(t, err)

	w, err := watcher.New(p.root, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// A newly created file becomes searchable.
	p.write(t, "fresh.md", "Fresh content describes cargo ships crossing the strait at night.")
	applyBatches(t, p, w, func() bool {
		results, err := p.svc.Search(ctx, "cargo ships", search.Options{})
		require.NoError(t, err)
		return len(results) > 0 && results[0].Chunk.FilePath == "fresh.md"
	})

	// Deleting it removes it again.
	require.NoError(t, os.Remove(filepath.Join(p.root, "fresh.md")))
	applyBatches(t, p, w, func() bool {
		results, err := p.svc.Search(ctx, "cargo ships", search.Options{})
		require.NoError(t, err)
		return len(results) == 0
	})

	// The seed file is untouched throughout.
	results, err := p.svc.Search(ctx, "weather balloons", search.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "seed.md", results[0].Chunk.FilePath)
}

func TestWatcherModificationReindexes(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.write(t, "doc.md", "Version one speaks of copper mines beneath the ridge.")

	_, err := p.coord.Run(ctx)
	require.NoError(t, err)

	w, err := watcher.New(p.root, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	p.write(t, "doc.md", "Version two speaks of silver veins beneath the glacier.")
	applyBatches(t, p, w, func() bool {
		results, err := p.svc.Search(ctx, "silver veins", search.Options{})
		require.NoError(t, err)
		return len(results) > 0
	})

	results, err := p.svc.Search(ctx, "copper mines", search.Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
