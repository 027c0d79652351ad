package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sema-sh/sema/internal/chunker"
	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/embed"
	semaerrors "github.com/sema-sh/sema/internal/errors"
	"github.com/sema-sh/sema/internal/store"
)

type fixture struct {
	root    string
	coord   *Coordinator
	chunks  *store.ChunkStore
	lexical *store.LexicalIndex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	cfg := config.NewConfig()
	// Short fixture files must still produce chunks
	cfg.Chunk.MinChunkSize = 10

	chunks, err := store.NewChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = chunks.Close() })

	lexical, err := store.NewLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })

	coord, err := NewCoordinator(root, cfg, chunks, lexical)
	require.NoError(t, err)

	return &fixture{root: root, coord: coord, chunks: chunks, lexical: lexical}
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCoordinator_FirstRunIndexesEverything(t *testing.T) {
	// Given a tree with two text files
	f := newFixture(t)
	f.write(t, "alpha.md", "the quick brown fox jumps over the lazy dog\n")
	f.write(t, "sub/beta.md", "zebras graze on the open savanna at dawn\n")

	// When indexing
	stats, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// Then both files land in both stores
	assert.Equal(t, 2, stats.FilesSeen)
	assert.Equal(t, 2, stats.FilesNew)
	assert.Zero(t, stats.FilesChanged)

	ctx := context.Background()
	hashes, err := f.chunks.FileHashes(ctx)
	require.NoError(t, err)
	assert.Len(t, hashes, 2)

	hits, err := f.lexical.Search(ctx, "fox", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alpha.md:0", hits[0].ID)
}

func TestCoordinator_RerunIsIdempotent(t *testing.T) {
	// Given an indexed tree
	f := newFixture(t)
	f.write(t, "a.md", "stable content that does not change\n")
	_, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// When indexing again without any edits
	stats, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// Then nothing is rewritten
	assert.Equal(t, 1, stats.FilesUnchanged)
	assert.Zero(t, stats.FilesNew)
	assert.Zero(t, stats.FilesChanged)
	assert.Zero(t, stats.ChunksIndexed)

	count, err := f.lexical.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestCoordinator_ContentChangeTriggersReindex(t *testing.T) {
	// Given an indexed file
	f := newFixture(t)
	f.write(t, "doc.md", "original wording about falcons\n")
	_, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// When its content changes and indexing reruns
	f.write(t, "doc.md", "rewritten wording about herons\n")
	stats, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// Then the file is reindexed and the old chunks are gone
	assert.Equal(t, 1, stats.FilesChanged)

	ctx := context.Background()
	hits, err := f.lexical.Search(ctx, "falcons", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = f.lexical.Search(ctx, "herons", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestCoordinator_TouchWithoutChangeIsUnchanged(t *testing.T) {
	// Given an indexed file
	f := newFixture(t)
	f.write(t, "same.md", "identical bytes before and after touch\n")
	_, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// When only its mtime changes
	f.write(t, "same.md", "identical bytes before and after touch\n")
	stats, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// Then the content hash wins and nothing is reindexed
	assert.Equal(t, 1, stats.FilesUnchanged)
	assert.Zero(t, stats.FilesChanged)
}

func TestCoordinator_DeletedFilePurged(t *testing.T) {
	// Given two indexed files
	f := newFixture(t)
	f.write(t, "keep.md", "this one stays around\n")
	f.write(t, "drop.md", "this one vanishes, mentioning ocelots\n")
	_, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// When one is removed from disk and indexing reruns
	require.NoError(t, os.Remove(filepath.Join(f.root, "drop.md")))
	stats, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// Then it disappears from both stores
	assert.Equal(t, 1, stats.FilesDeleted)

	ctx := context.Background()
	paths, err := f.chunks.AllPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.md"}, paths)

	hits, err := f.lexical.Search(ctx, "ocelots", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCoordinator_Update(t *testing.T) {
	// Given an indexed tree
	f := newFixture(t)
	f.write(t, "watched.md", "initial state with penguins\n")
	_, err := f.coord.Run(context.Background())
	require.NoError(t, err)

	// When one file changes and another appears, applied incrementally
	f.write(t, "watched.md", "updated state with albatrosses\n")
	f.write(t, "fresh.md", "brand new file with kestrels\n")
	stats, err := f.coord.Update(context.Background(), []string{"watched.md", "fresh.md"})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesChanged)
	assert.Equal(t, 1, stats.FilesNew)

	ctx := context.Background()
	hits, err := f.lexical.Search(ctx, "penguins", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = f.lexical.Search(ctx, "kestrels", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// And a deleted path passed to Update is purged
	require.NoError(t, os.Remove(filepath.Join(f.root, "fresh.md")))
	stats, err = f.coord.Update(context.Background(), []string{"fresh.md"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesDeleted)
}

// failingChunkStore refuses every write, as a full disk would.
type failingChunkStore struct {
	*store.ChunkStore
}

func (s *failingChunkStore) ApplyBatch(ctx context.Context, deletePaths []string, files []store.FileEntry, chunks []chunker.Chunk) error {
	return errors.New("disk full")
}

func TestCoordinator_FailedCommitReleasesWorkers(t *testing.T) {
	// Given a store whose commits always fail
	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.Chunk.MinChunkSize = 10

	chunks, err := store.NewChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = chunks.Close() })
	lexical, err := store.NewLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })

	coord, err := NewCoordinator(root, cfg, &failingChunkStore{chunks}, lexical)
	require.NoError(t, err)

	// Enough files that the commit fails while workers are still in flight
	for i := 0; i < 4*batchSize(); i++ {
		rel := fmt.Sprintf("file%03d.md", i)
		path := filepath.Join(root, rel)
		require.NoError(t, os.WriteFile(path, []byte("unique content for "+rel+"\n"), 0o644))
	}

	before := runtime.NumGoroutine()
	_, err = coord.Run(context.Background())
	require.Error(t, err)

	// Then no workers stay parked after the run returns
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestCoordinator_MissingRootYieldsEmptyRun(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.root))

	stats, err := f.coord.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.FilesSeen)
}

func TestAcquireLock(t *testing.T) {
	dir := t.TempDir()

	// First acquisition succeeds
	lock, err := AcquireLock(dir)
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	// A second one on the same directory is refused as retryable
	_, err = AcquireLock(dir)
	require.Error(t, err)
	assert.True(t, semaerrors.IsRetryable(err))
}

func TestCoordinator_SemanticSideIndex(t *testing.T) {
	// Given a coordinator with the semantic side-index attached
	f := newFixture(t)
	vectors, err := store.NewHNSWStore(embed.Dimensions)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })
	embedder := embed.NewHashEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })
	f.coord.WithSemantic(vectors, embedder)

	f.write(t, "notes.md", "migration checklist for the billing service\n")
	_, err = f.coord.Run(context.Background())
	require.NoError(t, err)

	// Then the chunk has a vector
	assert.Equal(t, 1, vectors.Len())

	// And deleting the file drops it
	require.NoError(t, os.Remove(filepath.Join(f.root, "notes.md")))
	_, err = f.coord.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, vectors.Len())
}

func TestBatchSize(t *testing.T) {
	n := batchSize()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 64)
}
