package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sema-sh/sema/internal/chunker"
	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/embed"
	semaerrors "github.com/sema-sh/sema/internal/errors"
	"github.com/sema-sh/sema/internal/store"
)

func newService(t *testing.T, chunks []chunker.Chunk) *Service {
	t.Helper()

	lexical, err := store.NewLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })

	chunkStore, err := store.NewChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = chunkStore.Close() })

	byPath := make(map[string][]chunker.Chunk)
	for _, ch := range chunks {
		byPath[ch.FilePath] = append(byPath[ch.FilePath], ch)
	}
	var files []store.FileEntry
	for path, fileChunks := range byPath {
		files = append(files, store.FileEntry{
			Path:        path,
			ContentHash: "test",
			ChunkCount:  len(fileChunks),
		})
	}
	require.NoError(t, chunkStore.ApplyBatch(context.Background(), nil, files, chunks))
	require.NoError(t, lexical.Index(context.Background(), chunks))

	return NewService(lexical, chunkStore, config.NewConfig().Search)
}

func testChunk(path string, index int, content string) chunker.Chunk {
	return chunker.Chunk{
		ID:         chunker.ChunkID(path, index),
		FilePath:   path,
		ChunkIndex: index,
		Content:    content,
		StartLine:  index*10 + 1,
		EndLine:    index*10 + 10,
		FileHash:   "test",
	}
}

func TestService_FindsMatchingChunk(t *testing.T) {
	// Given two documents about different animals
	svc := newService(t, []chunker.Chunk{
		testChunk("animals/fox.md", 0, "the quick brown fox jumps over the lazy dog"),
		testChunk("animals/zebra.md", 0, "zebras graze on the open savanna"),
	})

	// When searching for one of them
	results, err := svc.Search(context.Background(), "fox", Options{})
	require.NoError(t, err)

	// Then only the matching chunk comes back, with snippet and highlight
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "animals/fox.md", r.Chunk.FilePath)
	assert.Greater(t, r.Score, 0.0)
	assert.Contains(t, r.Snippet, "fox")
	assert.Contains(t, r.Highlighted, "**fox**")
	assert.Equal(t, 1, r.TotalMatchesInFile)
}

func TestService_HighlightsWholeChunkNotJustSnippet(t *testing.T) {
	// Given a chunk whose second occurrence of the term sits well past
	// any snippet window
	content := "fox at the start " +
		strings.Repeat("filler words between the occurrences ", 10) +
		"and a fox near the end"
	svc := newService(t, []chunker.Chunk{
		testChunk("animals/fox.md", 0, content),
	})

	results, err := svc.Search(context.Background(), "fox", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]

	// Then the highlighted content covers the full chunk, marking every
	// occurrence, while the snippet stays bounded
	assert.Equal(t, 2, strings.Count(r.Highlighted, "**fox**"))
	assert.Contains(t, r.Highlighted, "near the end")
	assert.LessOrEqual(t, len(r.Snippet), config.NewConfig().Search.SnippetLength+len("......"))
}

func TestService_BlankQuery(t *testing.T) {
	svc := newService(t, []chunker.Chunk{
		testChunk("a.md", 0, "content"),
	})

	for _, q := range []string{"", "   ", "'", "'   "} {
		results, err := svc.Search(context.Background(), q, Options{})
		require.NoError(t, err)
		assert.Empty(t, results, "query %q", q)
	}
}

func TestService_MalformedQuery(t *testing.T) {
	svc := newService(t, []chunker.Chunk{
		testChunk("a.md", 0, "content"),
	})

	_, err := svc.Search(context.Background(), `"unbalanced`, Options{})
	require.Error(t, err)
	assert.Equal(t, semaerrors.ErrCodeInvalidQuery, semaerrors.GetCode(err))
}

func TestService_LimitRespected(t *testing.T) {
	var chunks []chunker.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, testChunk(fmt.Sprintf("f%d.md", i), 0, "repeated marker text"))
	}
	svc := newService(t, chunks)

	results, err := svc.Search(context.Background(), "marker", Options{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestService_GroupByFile(t *testing.T) {
	// Given one file with three matching chunks and another with one
	svc := newService(t, []chunker.Chunk{
		testChunk("big.md", 0, "keyword appears here first"),
		testChunk("big.md", 1, "keyword again in the middle"),
		testChunk("big.md", 2, "keyword once more at the end"),
		testChunk("other.md", 0, "keyword in a different file"),
	})

	results, err := svc.Search(context.Background(), "keyword", Options{GroupByFile: true})
	require.NoError(t, err)

	// Then each file contributes one result, carrying its match count
	require.Len(t, results, 2)
	byPath := make(map[string]*Result)
	for _, r := range results {
		byPath[r.Chunk.FilePath] = r
	}
	require.Contains(t, byPath, "big.md")
	assert.Equal(t, 3, byPath["big.md"].TotalMatchesInFile)
	assert.Equal(t, 1, byPath["other.md"].TotalMatchesInFile)
}

func TestService_ResultsRankedByScore(t *testing.T) {
	svc := newService(t, []chunker.Chunk{
		testChunk("dense.md", 0, "falcon falcon falcon falcon"),
		testChunk("sparse.md", 0, "a falcon flew past the window today"),
	})

	results, err := svc.Search(context.Background(), "falcon", Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestService_HybridSearch(t *testing.T) {
	// Given a service with the semantic side-index populated
	chunks := []chunker.Chunk{
		testChunk("config.md", 0, "loading configuration from yaml files"),
		testChunk("net.md", 0, "opening tcp sockets with retries"),
	}
	svc := newService(t, chunks)

	vectors, err := store.NewHNSWStore(embed.Dimensions)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })
	embedder := embed.NewHashEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	ctx := context.Background()
	for _, ch := range chunks {
		vec, err := embedder.Embed(ctx, ch.Content)
		require.NoError(t, err)
		require.NoError(t, vectors.Add(ctx, []string{ch.ID}, [][]float32{vec}))
	}
	svc.WithSemantic(vectors, embedder)

	// When searching with a term present in one document
	results, err := svc.Search(ctx, "configuration yaml", Options{})
	require.NoError(t, err)

	// Then the lexically and semantically aligned chunk ranks first
	require.NotEmpty(t, results)
	assert.Equal(t, "config.md", results[0].Chunk.FilePath)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	// And the lexical prefix bypasses the vector path
	results, err = svc.Search(ctx, "'configuration", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "config.md", results[0].Chunk.FilePath)
}

func TestGroupByFile_Sorting(t *testing.T) {
	results := []*Result{
		{Chunk: chunker.Chunk{FilePath: "b.md", ID: "b.md:0"}, Score: 0.5},
		{Chunk: chunker.Chunk{FilePath: "a.md", ID: "a.md:0"}, Score: 0.9},
		{Chunk: chunker.Chunk{FilePath: "a.md", ID: "a.md:1"}, Score: 0.2},
	}

	grouped := GroupByFile(results)
	require.Len(t, grouped, 2)
	assert.Equal(t, "a.md", grouped[0].Chunk.FilePath)
	assert.Equal(t, 0.9, grouped[0].Score)
	assert.Equal(t, 2, grouped[0].TotalMatchesInFile)
	assert.Equal(t, "b.md", grouped[1].Chunk.FilePath)
}

func TestFuseRRF(t *testing.T) {
	lex := []*store.Hit{
		{ID: "both", Score: 2.0},
		{ID: "lex-only", Score: 1.0},
	}
	vec := []*store.Hit{
		{ID: "both", Score: 0.9},
		{ID: "vec-only", Score: 0.8},
	}

	fused := fuseRRF(lex, vec)
	require.Len(t, fused, 3)

	// The document in both lists wins, normalized to 1
	assert.Equal(t, "both", fused[0].ID)
	assert.Equal(t, 1.0, fused[0].Score)
	for _, h := range fused[1:] {
		assert.Less(t, h.Score, 1.0)
	}

	assert.Empty(t, fuseRRF(nil, nil))
}
