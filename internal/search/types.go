// Package search turns ranked index hits into presentable results:
// chunk content, snippets, highlighting, and per-file grouping. The
// optional semantic side-index is fused in with Reciprocal Rank Fusion.
package search

import "github.com/sema-sh/sema/internal/chunker"

// LexicalPrefix forces a lexical-only search when a semantic
// side-index is available. Stripped from the query before parsing.
const LexicalPrefix = "'"

// Result is one search hit, ready for rendering.
type Result struct {
	Chunk chunker.Chunk `json:"chunk"`

	// Score is the ranking score: Bleve's score for lexical searches,
	// the normalized RRF score for fused ones.
	Score float64 `json:"score"`

	// Snippet is a bounded window of the chunk centered on the first
	// query-term occurrence.
	Snippet string `json:"snippet"`

	// Highlighted is the chunk content with query terms wrapped in
	// ** markers.
	Highlighted string `json:"highlighted"`

	// TotalMatchesInFile counts ranked chunks from the same file.
	TotalMatchesInFile int `json:"total_matches_in_file"`
}

// Options control one search request.
type Options struct {
	// Limit caps the number of results. Zero means the configured
	// default.
	Limit int

	// GroupByFile collapses results to the best chunk per file.
	GroupByFile bool
}
