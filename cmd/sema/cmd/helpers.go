package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/embed"
	"github.com/sema-sh/sema/internal/search"
	"github.com/sema-sh/sema/internal/store"
)

// Data directory layout under <root>/.sema/.
const (
	chunkStoreFile   = "chunks.db"
	lexicalIndexFile = "lexical.bleve"
	vectorIndexFile  = "vectors.hnsw"
)

// resolveRoot turns the optional directory argument into an absolute,
// verified directory path.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", dir, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}
	return root, nil
}

// indexExists reports whether an index has been built for root.
func indexExists(root string) bool {
	_, err := os.Stat(filepath.Join(config.DataDir(root), chunkStoreFile))
	return err == nil
}

// stores bundles the persistent index halves plus the optional vector
// side-index.
type stores struct {
	dataDir string
	chunks  *store.ChunkStore
	lexical *store.LexicalIndex
	vectors *store.HNSWStore
}

// openStores opens the chunk store and lexical index for root, and
// loads the vector side-index if one has been saved.
func openStores(root string) (*stores, error) {
	dataDir := config.DataDir(root)

	chunks, err := store.NewChunkStore(filepath.Join(dataDir, chunkStoreFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	lexical, err := store.NewLexicalIndex(filepath.Join(dataDir, lexicalIndexFile))
	if err != nil {
		_ = chunks.Close()
		return nil, fmt.Errorf("failed to open lexical index: %w", err)
	}

	vectors, err := store.NewHNSWStore(embed.Dimensions)
	if err != nil {
		_ = chunks.Close()
		_ = lexical.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	vectorPath := filepath.Join(dataDir, vectorIndexFile)
	if _, err := os.Stat(vectorPath); err == nil {
		if loadErr := vectors.Load(vectorPath); loadErr != nil {
			// A broken side-index is advisory; rebuild it on the next run.
			slog.Warn("failed to load vector index", slog.String("error", loadErr.Error()))
		}
	}

	return &stores{
		dataDir: dataDir,
		chunks:  chunks,
		lexical: lexical,
		vectors: vectors,
	}, nil
}

// saveVectors persists the vector side-index. Failures are logged, not
// fatal: search falls back to lexical-only.
func (s *stores) saveVectors() {
	if err := s.vectors.Save(filepath.Join(s.dataDir, vectorIndexFile)); err != nil {
		slog.Warn("failed to save vector index", slog.String("error", err.Error()))
	}
}

// Close releases all open stores.
func (s *stores) Close() {
	_ = s.vectors.Close()
	_ = s.lexical.Close()
	_ = s.chunks.Close()
}

// searchEnv is everything a query needs.
type searchEnv struct {
	stores   *stores
	embedder *embed.HashEmbedder
	service  *search.Service
}

// openSearchEnv opens the stores for root and wires a search service
// over them, including the semantic side-index when it has vectors.
func openSearchEnv(root string) (*searchEnv, error) {
	if !indexExists(root) {
		return nil, fmt.Errorf("no index found for %s; run 'sema index' first", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	st, err := openStores(root)
	if err != nil {
		return nil, err
	}

	embedder := embed.NewHashEmbedder()
	svc := search.NewService(st.lexical, st.chunks, cfg.Search)
	if st.vectors.Len() > 0 {
		svc = svc.WithSemantic(st.vectors, embedder)
	}

	return &searchEnv{stores: st, embedder: embedder, service: svc}, nil
}

// Close releases the environment's stores.
func (e *searchEnv) Close() {
	_ = e.embedder.Close()
	e.stores.Close()
}
