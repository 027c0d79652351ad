package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sema-sh/sema/internal/chunker"
)

func makeChunks(path, hash string, n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{
			ID:         chunker.ChunkID(path, i),
			FilePath:   path,
			ChunkIndex: i,
			Content:    "content of chunk",
			StartLine:  i*10 + 1,
			EndLine:    i*10 + 10,
			FileHash:   hash,
		}
	}
	return chunks
}

func makeFileEntry(path, hash string, chunkCount int) FileEntry {
	return FileEntry{
		Path:        path,
		ContentHash: hash,
		Size:        1024,
		ModTime:     time.Now(),
		ChunkCount:  chunkCount,
		IndexedAt:   time.Now(),
	}
}

func TestChunkStore_ApplyBatchAndRead(t *testing.T) {
	// Given an empty in-memory store
	store, err := NewChunkStore("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	// When a batch of two files is applied
	files := []FileEntry{
		makeFileEntry("a/main.go", "hash-a", 2),
		makeFileEntry("b/util.go", "hash-b", 1),
	}
	chunks := append(makeChunks("a/main.go", "hash-a", 2), makeChunks("b/util.go", "hash-b", 1)...)
	err = store.ApplyBatch(ctx, nil, files, chunks)
	require.NoError(t, err)

	// Then hashes and chunk IDs are readable
	hashes, err := store.FileHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a/main.go": "hash-a", "b/util.go": "hash-b"}, hashes)

	ids, err := store.ChunkIDsForPath(ctx, "a/main.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/main.go:0", "a/main.go:1"}, ids)

	paths, err := store.AllPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/main.go", "b/util.go"}, paths)
}

func TestChunkStore_ApplyBatchDeleteThenReinsert(t *testing.T) {
	// Given a store with one indexed file
	store, err := NewChunkStore("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	err = store.ApplyBatch(ctx, nil,
		[]FileEntry{makeFileEntry("x.go", "old", 3)},
		makeChunks("x.go", "old", 3))
	require.NoError(t, err)

	// When the file is deleted and reinserted with fewer chunks
	err = store.ApplyBatch(ctx, []string{"x.go"},
		[]FileEntry{makeFileEntry("x.go", "new", 1)},
		makeChunks("x.go", "new", 1))
	require.NoError(t, err)

	// Then only the new chunk rows remain
	ids, err := store.ChunkIDsForPath(ctx, "x.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.go:0"}, ids)

	hashes, err := store.FileHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", hashes["x.go"])
}

func TestChunkStore_DeleteWithoutReinsert(t *testing.T) {
	// Given a store with one indexed file
	store, err := NewChunkStore("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	err = store.ApplyBatch(ctx, nil,
		[]FileEntry{makeFileEntry("gone.go", "h", 2)},
		makeChunks("gone.go", "h", 2))
	require.NoError(t, err)

	// When the path is deleted with no replacement
	err = store.ApplyBatch(ctx, []string{"gone.go"}, nil, nil)
	require.NoError(t, err)

	// Then no trace of the file remains
	hashes, err := store.FileHashes(ctx)
	require.NoError(t, err)
	assert.Empty(t, hashes)

	ids, err := store.ChunkIDsForPath(ctx, "gone.go")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChunkStore_ChunksByIDsPreservesOrder(t *testing.T) {
	store, err := NewChunkStore("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	err = store.ApplyBatch(ctx, nil,
		[]FileEntry{makeFileEntry("f.go", "h", 3)},
		makeChunks("f.go", "h", 3))
	require.NoError(t, err)

	// Ranked order from a search, including an ID no longer stored
	got, err := store.ChunksByIDs(ctx, []string{"f.go:2", "f.go:0", "f.go:99", "f.go:1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "f.go:2", got[0].ID)
	assert.Equal(t, "f.go:0", got[1].ID)
	assert.Equal(t, "f.go:1", got[2].ID)
}

func TestChunkStore_Stats(t *testing.T) {
	store, err := NewChunkStore("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	err = store.ApplyBatch(ctx, nil,
		[]FileEntry{makeFileEntry("a.go", "h1", 2), makeFileEntry("b.go", "h2", 1)},
		append(makeChunks("a.go", "h1", 2), makeChunks("b.go", "h2", 1)...))
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 3, stats.ChunkCount)
	assert.Equal(t, int64(2048), stats.SizeBytes)
}

func TestChunkStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")
	ctx := context.Background()

	store, err := NewChunkStore(dbPath)
	require.NoError(t, err)
	err = store.ApplyBatch(ctx, nil,
		[]FileEntry{makeFileEntry("p.go", "h", 1)},
		makeChunks("p.go", "h", 1))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewChunkStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	hashes, err := reopened.FileHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h", hashes["p.go"])
}

func TestChunkStore_CorruptFileRecreated(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chunks.db")

	// Given a garbage file where the database should be
	require.NoError(t, os.WriteFile(dbPath, []byte("this is not a sqlite database at all"), 0o644))

	// When the store is opened
	store, err := NewChunkStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// Then it starts empty and is usable
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FileCount)
}

func TestChunkStore_ClosedErrors(t *testing.T) {
	store, err := NewChunkStore("")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.FileHashes(context.Background())
	assert.Error(t, err)

	err = store.ApplyBatch(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}
