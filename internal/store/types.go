// Package store holds the two persistent halves of the index: the
// SQLite chunk relation and the Bleve lexical index, plus the optional
// HNSW vector store. The index coordinator is the only writer to any
// of them.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sema-sh/sema/internal/chunker"
)

// FileEntry is the durable fingerprint record for one indexed file.
type FileEntry struct {
	Path        string
	ContentHash string
	Size        int64
	// ModTime is stored but informational only; change detection relies
	// solely on ContentHash.
	ModTime    time.Time
	ChunkCount int
	IndexedAt  time.Time
}

// Hit is one scored lexical index match.
type Hit struct {
	ID    string
	Score float64
}

// StoreStats summarizes the chunk relation.
type StoreStats struct {
	FileCount  int
	ChunkCount int
	SizeBytes  int64
}

// ChunkWriter is the write surface the coordinator uses on the chunk
// relation.
type ChunkWriter interface {
	// ApplyBatch applies one indexing run's writes in a single
	// transaction: delete all rows for deletePaths, upsert file
	// entries, insert-or-replace chunks.
	ApplyBatch(ctx context.Context, deletePaths []string, files []FileEntry, chunks []chunker.Chunk) error
}

// ChunkReader is the read surface of the chunk relation.
type ChunkReader interface {
	FileHashes(ctx context.Context) (map[string]string, error)
	ChunkIDsForPath(ctx context.Context, path string) ([]string, error)
	ChunksByIDs(ctx context.Context, ids []string) ([]chunker.Chunk, error)
	AllPaths(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*StoreStats, error)
}

// Lexical is the contract of the lexical search index.
type Lexical interface {
	Index(ctx context.Context, chunks []chunker.Chunk) error
	Delete(ctx context.Context, ids []string) error
	Search(ctx context.Context, query string, limit int) ([]*Hit, error)
	DocCount() (uint64, error)
	Close() error
}

// VectorStore is the nearest-neighbor contract of the optional
// semantic side-index.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]*Hit, error)
	Delete(ctx context.Context, ids []string) error
	Len() int
	Close() error
}

// ErrDimensionMismatch reports a vector of the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
