package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/sema-sh/sema/internal/chunker"
	semaerrors "github.com/sema-sh/sema/internal/errors"
)

// LexicalIndex wraps Bleve v2 for ranked full-text search over chunks.
// Writes go through the coordinator and are serialized by the mutex;
// readers see the committed snapshot at each batch boundary.
type LexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ Lexical = (*LexicalIndex)(nil)

// lexicalDocument is the document structure for Bleve indexing.
type lexicalDocument struct {
	Content   string `json:"content"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// validateIndexIntegrity checks if a Bleve index is valid before opening.
// Returns nil if valid, an error describing corruption if not.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Index doesn't exist, will be created
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError checks if an error indicates Bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// NewLexicalIndex opens (or creates) the lexical index at path.
// An empty path creates an in-memory index for testing.
func NewLexicalIndex(path string) (*LexicalIndex, error) {
	indexMapping := createIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, mkErr)
		}

		// The index is a rebuildable artifact: clear on corruption
		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("lexical_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, semaerrors.New(semaerrors.ErrCodeCorruptIndex,
					fmt.Sprintf("lexical index corrupted at %s and cannot remove", path), removeErr)
			}
			slog.Info("lexical_index_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("lexical_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))

			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, semaerrors.New(semaerrors.ErrCodeCorruptIndex,
					"lexical index corrupted, cannot clear", removeErr)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, semaerrors.New(semaerrors.ErrCodeStoreOpen, "failed to open lexical index", err)
	}

	return &LexicalIndex{
		index: idx,
		path:  path,
	}, nil
}

// createIndexMapping builds the Bleve mapping: analyzed content plus
// stored location fields.
func createIndexMapping() *mapping.IndexMappingImpl {
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false
	contentField.IncludeInAll = true

	pathField := bleve.NewKeywordFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false

	lineField := bleve.NewNumericFieldMapping()
	lineField.Store = true
	lineField.Index = false
	lineField.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("file_path", pathField)
	docMapping.AddFieldMappingsAt("start_line", lineField)
	docMapping.AddFieldMappingsAt("end_line", lineField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	indexMapping.DefaultField = "content"

	return indexMapping
}

// Index adds chunks to the index in one batch commit.
func (l *LexicalIndex) Index(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("lexical index is closed")
	}

	batch := l.index.NewBatch()
	for _, c := range chunks {
		doc := lexicalDocument{
			Content:   c.Content,
			FilePath:  c.FilePath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", c.ID, err)
		}
	}

	if err := l.index.Batch(batch); err != nil {
		return semaerrors.New(semaerrors.ErrCodeBatchFailed, "failed to commit index batch", err)
	}

	return nil
}

// Delete removes documents from the index in one batch commit.
func (l *LexicalIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("lexical index is closed")
	}

	batch := l.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	if err := l.index.Batch(batch); err != nil {
		return semaerrors.New(semaerrors.ErrCodeBatchFailed, "failed to delete documents", err)
	}

	return nil
}

// Search runs a query-string query (boolean/phrase syntax) and returns
// scored hits, best first. A blank query yields no hits; a malformed
// query yields a typed parse failure.
func (l *LexicalIndex) Search(ctx context.Context, queryStr string, limit int) ([]*Hit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("lexical index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*Hit{}, nil
	}

	// Parse up front so syntax errors are distinguishable from
	// execution failures.
	parsed, err := bleve.NewQueryStringQuery(queryStr).Parse()
	if err != nil {
		return nil, semaerrors.New(semaerrors.ErrCodeInvalidQuery,
			fmt.Sprintf("malformed query: %s", queryStr), err)
	}

	searchRequest := bleve.NewSearchRequest(parsed)
	searchRequest.Size = limit

	result, err := l.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, semaerrors.New(semaerrors.ErrCodeSearchFailed, "search failed", err)
	}

	hits := make([]*Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, &Hit{
			ID:    hit.ID,
			Score: hit.Score,
		})
	}

	return hits, nil
}

// AllIDs returns all document IDs in the index.
// Used for consistency checks and Clear.
func (l *LexicalIndex) AllIDs() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("lexical index is closed")
	}

	docCount, _ := l.index.DocCount()

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := l.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for all IDs: %w", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}

	return ids, nil
}

// Clear removes every document from the index.
func (l *LexicalIndex) Clear(ctx context.Context) error {
	ids, err := l.AllIDs()
	if err != nil {
		return err
	}
	return l.Delete(ctx, ids)
}

// DocCount returns the number of indexed documents.
func (l *LexicalIndex) DocCount() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, fmt.Errorf("lexical index is closed")
	}

	return l.index.DocCount()
}

// Close closes the index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	if l.index != nil {
		return l.index.Close()
	}
	return nil
}
