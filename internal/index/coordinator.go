// Package index coordinates crawling, change detection, chunking, and
// the dual-store writes that keep the chunk store and the lexical
// index in step.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sema-sh/sema/internal/chunker"
	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/crawler"
	"github.com/sema-sh/sema/internal/embed"
	semaerrors "github.com/sema-sh/sema/internal/errors"
	"github.com/sema-sh/sema/internal/store"
)

// ChunkStore is the persistence surface the coordinator writes to.
type ChunkStore interface {
	store.ChunkWriter
	store.ChunkReader
}

// Stats summarizes one indexing run.
type Stats struct {
	FilesSeen      int
	FilesNew       int
	FilesChanged   int
	FilesUnchanged int
	FilesDeleted   int
	ChunksIndexed  int
	ChunksDeleted  int
	Errors         int
}

// Coordinator drives indexing runs: full crawls and incremental
// updates from the watcher.
type Coordinator struct {
	root    string
	cfg     *config.Config
	crawler *crawler.Crawler
	chunks  ChunkStore
	lexical store.Lexical

	// Optional semantic side-index. When set, chunk embeddings are
	// maintained alongside the lexical documents. Failures here are
	// logged, not fatal: the side-index is advisory.
	vectors  store.VectorStore
	embedder embed.Embedder

	mu sync.Mutex
}

// fileResult is one processed file ready to be written: the metadata
// row, its chunks, and the IDs of chunks it supersedes.
type fileResult struct {
	entry      store.FileEntry
	chunks     []chunker.Chunk
	deleteIDs  []string
	deletePath bool
}

// NewCoordinator creates a coordinator over the given stores.
func NewCoordinator(root string, cfg *config.Config, chunks ChunkStore, lexical store.Lexical) (*Coordinator, error) {
	c, err := crawler.New(cfg.Crawler)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		root:    root,
		cfg:     cfg,
		crawler: c,
		chunks:  chunks,
		lexical: lexical,
	}, nil
}

// WithSemantic attaches the semantic side-index: chunk contents are
// embedded and kept in the vector store as files are indexed.
func (c *Coordinator) WithSemantic(vectors store.VectorStore, embedder embed.Embedder) *Coordinator {
	c.vectors = vectors
	c.embedder = embedder
	return c
}

// batchSize derives the per-commit file batch from the host CPU count.
func batchSize() int {
	n := runtime.NumCPU() * 2
	if n < 1 {
		n = 1
	}
	if n > 64 {
		n = 64
	}
	return n
}

// Run performs a full indexing pass: crawl the tree, index new and
// changed files, drop files that no longer exist. Re-running on an
// unchanged tree writes nothing.
func (c *Coordinator) Run(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &Stats{}

	results, err := c.crawler.Crawl(ctx, c.root)
	if err != nil {
		return nil, err
	}

	known, err := c.chunks.FileHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load known file hashes: %w", err)
	}

	seen := make(map[string]bool)
	var records []*crawler.FileRecord
	for r := range results {
		if r.Error != nil {
			slog.Warn("crawl error", slog.String("error", r.Error.Error()))
			stats.Errors++
			continue
		}
		seen[r.File.Path] = true
		records = append(records, r.File)
	}
	stats.FilesSeen = len(records)

	if err := c.processRecords(ctx, records, known, stats); err != nil {
		return stats, err
	}

	if err := c.purgeMissing(ctx, seen, known, stats); err != nil {
		return stats, err
	}

	slog.Info("indexing run complete",
		slog.Int("seen", stats.FilesSeen),
		slog.Int("new", stats.FilesNew),
		slog.Int("changed", stats.FilesChanged),
		slog.Int("unchanged", stats.FilesUnchanged),
		slog.Int("deleted", stats.FilesDeleted),
		slog.Int("chunks_indexed", stats.ChunksIndexed))

	return stats, nil
}

// Update incrementally reindexes the given root-relative paths.
// Files that no longer exist on disk are dropped from both stores.
// Used by watch mode after debounced filesystem events.
func (c *Coordinator) Update(ctx context.Context, relPaths []string) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &Stats{}
	known, err := c.chunks.FileHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load known file hashes: %w", err)
	}

	var records []*crawler.FileRecord
	var gone []string
	for _, rel := range relPaths {
		abs := filepath.Join(c.root, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			if _, existed := known[rel]; existed {
				gone = append(gone, rel)
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		records = append(records, &crawler.FileRecord{
			Path:    rel,
			AbsPath: abs,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	stats.FilesSeen = len(records)

	if err := c.processRecords(ctx, records, known, stats); err != nil {
		return stats, err
	}

	if len(gone) > 0 {
		goneSet := make(map[string]string, len(gone))
		for _, path := range gone {
			goneSet[path] = known[path]
		}
		if err := c.purgeMissing(ctx, map[string]bool{}, goneSet, stats); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// processRecords fans file processing across workers and commits
// results in batches: one chunk-store transaction, then one lexical
// batch per commit. The two stores are not atomic with each other; a
// crash between them is healed by the next run because change
// detection reads only the chunk store.
func (c *Coordinator) processRecords(ctx context.Context, records []*crawler.FileRecord, known map[string]string, stats *Stats) error {
	if len(records) == 0 {
		return nil
	}

	size := batchSize()
	workers := size
	out := make(chan *fileResult, workers*2)

	var errCount atomic.Int64

	// Cancellation must reach workers parked on out, or a failed commit
	// strands the pool. Watch mode calls through here on every batch.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		defer close(out)
		for _, rec := range records {
			rec := rec
			g.Go(func() error {
				res, err := c.processFile(gctx, rec, known)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					// Per-file failures degrade, they do not abort the run
					slog.Warn("failed to process file",
						slog.String("path", rec.Path),
						slog.String("error", err.Error()))
					errCount.Add(1)
					return nil
				}
				if res == nil {
					return nil
				}
				select {
				case out <- res:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	batch := make([]*fileResult, 0, size)
	for res := range out {
		batch = append(batch, res)
		if len(batch) >= size {
			if err := c.commitBatch(ctx, batch, stats); err != nil {
				cancel()
				for range out {
				}
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := c.commitBatch(ctx, batch, stats); err != nil {
			return err
		}
	}

	stats.Errors += int(errCount.Load())
	return nil
}

// processFile reads and hashes one file and decides what to do with
// it. Returns nil when the file is unchanged.
func (c *Coordinator) processFile(ctx context.Context, rec *crawler.FileRecord, known map[string]string) (*fileResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	content, err := crawler.ReadFile(rec.AbsPath, c.cfg.Crawler.MaxFileSize)
	if err != nil {
		return nil, err
	}

	hash := hashContent(content)
	oldHash, existed := known[rec.Path]
	if existed && oldHash == hash {
		return &fileResult{entry: store.FileEntry{Path: rec.Path, ContentHash: hash}, deletePath: false, chunks: nil}, nil
	}

	chunks := chunker.Split(rec.Path, content, hash, c.cfg.Chunk)

	res := &fileResult{
		entry: store.FileEntry{
			Path:        rec.Path,
			ContentHash: hash,
			Size:        rec.Size,
			ModTime:     rec.ModTime,
			ChunkCount:  len(chunks),
			IndexedAt:   time.Now(),
		},
		chunks:     chunks,
		deletePath: existed,
	}

	if existed {
		ids, err := c.chunks.ChunkIDsForPath(ctx, rec.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing chunks: %w", err)
		}
		res.deleteIDs = ids
	}

	return res, nil
}

// commitBatch writes a batch of processed files: delete superseded
// rows and insert new ones in a single transaction, then mirror the
// change into the lexical index.
func (c *Coordinator) commitBatch(ctx context.Context, batch []*fileResult, stats *Stats) error {
	var deletePaths []string
	var files []store.FileEntry
	var chunks []chunker.Chunk
	var deleteIDs []string

	for _, res := range batch {
		if res.chunks == nil && !res.deletePath {
			// Unchanged file
			stats.FilesUnchanged++
			continue
		}
		if res.deletePath {
			deletePaths = append(deletePaths, res.entry.Path)
			deleteIDs = append(deleteIDs, res.deleteIDs...)
			stats.FilesChanged++
		} else {
			stats.FilesNew++
		}
		files = append(files, res.entry)
		chunks = append(chunks, res.chunks...)
	}

	if len(files) == 0 && len(deletePaths) == 0 {
		return nil
	}

	if err := c.chunks.ApplyBatch(ctx, deletePaths, files, chunks); err != nil {
		return semaerrors.Wrap(semaerrors.ErrCodeTxFailed, err)
	}

	if len(deleteIDs) > 0 {
		if err := c.lexical.Delete(ctx, deleteIDs); err != nil {
			return semaerrors.Wrap(semaerrors.ErrCodeBatchFailed, err)
		}
		stats.ChunksDeleted += len(deleteIDs)
	}
	if len(chunks) > 0 {
		if err := c.lexical.Index(ctx, chunks); err != nil {
			return semaerrors.Wrap(semaerrors.ErrCodeBatchFailed, err)
		}
		stats.ChunksIndexed += len(chunks)
	}

	c.updateVectors(ctx, deleteIDs, chunks)

	return nil
}

// updateVectors mirrors a committed batch into the semantic side-index.
func (c *Coordinator) updateVectors(ctx context.Context, deleteIDs []string, chunks []chunker.Chunk) {
	if c.vectors == nil || c.embedder == nil {
		return
	}

	if len(deleteIDs) > 0 {
		if err := c.vectors.Delete(ctx, deleteIDs); err != nil {
			slog.Warn("failed to delete vectors", slog.String("error", err.Error()))
		}
	}
	if len(chunks) == 0 {
		return
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		texts[i] = ch.Content
	}

	vecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("failed to embed chunk batch", slog.String("error", err.Error()))
		return
	}
	if err := c.vectors.Add(ctx, ids, vecs); err != nil {
		slog.Warn("failed to add vectors", slog.String("error", err.Error()))
	}
}

// purgeMissing removes files that are indexed but no longer on disk.
func (c *Coordinator) purgeMissing(ctx context.Context, seen map[string]bool, known map[string]string, stats *Stats) error {
	var gone []string
	for path := range known {
		if !seen[path] {
			gone = append(gone, path)
		}
	}
	if len(gone) == 0 {
		return nil
	}

	var deleteIDs []string
	for _, path := range gone {
		ids, err := c.chunks.ChunkIDsForPath(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to list chunks for removed file: %w", err)
		}
		deleteIDs = append(deleteIDs, ids...)
	}

	if err := c.chunks.ApplyBatch(ctx, gone, nil, nil); err != nil {
		return semaerrors.Wrap(semaerrors.ErrCodeTxFailed, err)
	}
	if len(deleteIDs) > 0 {
		if err := c.lexical.Delete(ctx, deleteIDs); err != nil {
			return semaerrors.Wrap(semaerrors.ErrCodeBatchFailed, err)
		}
		stats.ChunksDeleted += len(deleteIDs)
	}
	c.updateVectors(ctx, deleteIDs, nil)

	stats.FilesDeleted = len(gone)
	slog.Info("purged missing files", slog.Int("count", len(gone)))
	return nil
}

// hashContent returns the hex SHA-256 of file content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
