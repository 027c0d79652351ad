package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sema-sh/sema/internal/config"
	"github.com/sema-sh/sema/internal/embed"
	"github.com/sema-sh/sema/internal/store"
)

// Service answers search requests against the dual store.
type Service struct {
	lexical store.Lexical
	chunks  store.ChunkReader
	cfg     config.SearchConfig

	// Optional semantic side-index
	vectors  store.VectorStore
	embedder embed.Embedder
}

// NewService creates a search service over the lexical index and
// chunk store.
func NewService(lexical store.Lexical, chunks store.ChunkReader, cfg config.SearchConfig) *Service {
	return &Service{
		lexical: lexical,
		chunks:  chunks,
		cfg:     cfg,
	}
}

// WithSemantic enables hybrid search. Queries starting with
// LexicalPrefix still bypass the vector path.
func (s *Service) WithSemantic(vectors store.VectorStore, embedder embed.Embedder) *Service {
	s.vectors = vectors
	s.embedder = embedder
	return s
}

// Search runs a query and returns rendered results. A blank query
// yields an empty slice, not an error.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []*Result{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}

	lexicalOnly := false
	if strings.HasPrefix(trimmed, LexicalPrefix) {
		lexicalOnly = true
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, LexicalPrefix))
		if trimmed == "" {
			return []*Result{}, nil
		}
	}

	hits, err := s.rank(ctx, trimmed, limit, lexicalOnly)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []*Result{}, nil
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}

	chunks, err := s.chunks.ChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for hits: %w", err)
	}

	terms := queryTerms(trimmed)
	fileCounts := make(map[string]int, len(chunks))
	for _, ch := range chunks {
		fileCounts[ch.FilePath]++
	}

	results := make([]*Result, 0, len(chunks))
	for _, ch := range chunks {
		results = append(results, &Result{
			Chunk:              ch,
			Score:              scores[ch.ID],
			Snippet:            makeSnippet(ch.Content, terms, s.cfg.SnippetLength),
			Highlighted:        highlight(ch.Content, terms),
			TotalMatchesInFile: fileCounts[ch.FilePath],
		})
	}

	if opts.GroupByFile {
		results = GroupByFile(results)
	}

	return results, nil
}

// rank produces the ordered hit list: lexical alone, or lexical fused
// with the vector neighborhood when the side-index is available.
func (s *Service) rank(ctx context.Context, query string, limit int, lexicalOnly bool) ([]*store.Hit, error) {
	lexHits, err := s.lexical.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if lexicalOnly || s.vectors == nil || s.embedder == nil {
		return lexHits, nil
	}

	// The side-index reorders lexical matches; a vector neighborhood by
	// itself is not evidence of a match, since HNSW always returns the
	// k nearest vectors no matter how distant.
	if len(lexHits) == 0 {
		return lexHits, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, falling back to lexical",
			slog.String("error", err.Error()))
		return lexHits, nil
	}

	vecHits, err := s.vectors.Search(ctx, vec, limit)
	if err != nil {
		slog.Warn("vector search failed, falling back to lexical",
			slog.String("error", err.Error()))
		return lexHits, nil
	}

	fused := fuseRRF(lexHits, vecHits)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}
