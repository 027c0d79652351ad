package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ellipsis marks a truncated snippet side.
const ellipsis = "..."

// queryTerms splits a query into highlightable terms, dropping Bleve
// operator punctuation so "error AND handler" highlights both words.
func queryTerms(query string) []string {
	var terms []string
	for _, field := range strings.Fields(query) {
		term := strings.Trim(field, `"'+-*~^:()[]{}`)
		if term == "" {
			continue
		}
		upper := strings.ToUpper(term)
		if upper == "AND" || upper == "OR" || upper == "NOT" || upper == "TO" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// makeSnippet extracts a window of at most maxLen bytes centered on
// the first case-insensitive occurrence of any query term. The window
// is snapped outward from rune boundaries so multi-byte characters are
// never split, and truncated sides get an ellipsis.
func makeSnippet(content string, terms []string, maxLen int) string {
	content = strings.ReplaceAll(content, "\n", " ")

	if len(content) <= maxLen {
		return strings.TrimSpace(content)
	}

	// Locate the anchor: first occurrence of any term
	anchor := -1
	anchorLen := 0
	lower := strings.ToLower(content)
	for _, term := range terms {
		idx := strings.Index(lower, strings.ToLower(term))
		if idx >= 0 && (anchor < 0 || idx < anchor) {
			anchor = idx
			anchorLen = len(term)
		}
	}
	if anchor < 0 {
		// No term found, take the head of the chunk
		end := snapRuneStart(content, maxLen-len(ellipsis))
		return strings.TrimSpace(content[:end]) + ellipsis
	}

	// Center the window on the match
	center := anchor + anchorLen/2
	start := center - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(content) {
		end = len(content)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	start = snapRuneStart(content, start)
	end = snapRuneStart(content, end)

	snippet := strings.TrimSpace(content[start:end])
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(content) {
		snippet = snippet + ellipsis
	}
	return snippet
}

// snapRuneStart moves a byte offset back to the nearest rune start.
func snapRuneStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// highlight wraps whole-word case-insensitive matches of each term in
// ** markers. Terms that fail to compile as a word pattern are skipped.
func highlight(snippet string, terms []string) string {
	out := snippet
	for _, term := range terms {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			continue
		}
		out = re.ReplaceAllString(out, "**$0**")
	}
	return out
}
