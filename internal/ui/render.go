package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sema-sh/sema/internal/search"
)

// markerPattern matches the ** match markers produced by the search
// highlighter.
var markerPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// RenderText writes results as plain text, one block per result:
// path with line range and score, then the highlighted snippet.
// When color is enabled the match markers become styled spans;
// otherwise they pass through so piped output stays grep friendly.
func RenderText(w io.Writer, results []*search.Result, noColor bool) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No results found.")
		return
	}

	styles := GetStyles(noColor)

	for i, r := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}

		header := fmt.Sprintf("%s:%d-%d",
			r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine)
		score := fmt.Sprintf("(%.3f)", r.Score)

		line := styles.FilePath.Render(header) + " " + styles.Score.Render(score)
		if r.TotalMatchesInFile > 1 {
			line += " " + styles.Count.Render(fmt.Sprintf("+%d in file", r.TotalMatchesInFile-1))
		}
		_, _ = fmt.Fprintln(w, line)

		snippet := markTerms(r.Snippet, r.Highlighted)
		if !noColor && !DetectNoColor() {
			snippet = colorizeMarkers(snippet, styles)
		}
		for _, sl := range strings.Split(snippet, "\n") {
			_, _ = fmt.Fprintf(w, "  %s\n", sl)
		}
	}
}

// markTerms wraps in ** markers every snippet occurrence of a term the
// highlighter marked in the full chunk content. The snippet itself is
// stored plain; this keeps the rendered excerpt bounded while matching
// what the highlighted chunk marks.
func markTerms(snippet, highlighted string) string {
	marked := markerPattern.FindAllStringSubmatch(highlighted, -1)
	if len(marked) == 0 {
		return snippet
	}
	seen := make(map[string]bool, len(marked))
	quoted := make([]string, 0, len(marked))
	for _, m := range marked {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		quoted = append(quoted, regexp.QuoteMeta(m[1]))
	}
	re, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return snippet
	}
	return re.ReplaceAllString(snippet, "**$1**")
}

// colorizeMarkers replaces **term** markers with styled text.
func colorizeMarkers(s string, styles Styles) string {
	return markerPattern.ReplaceAllStringFunc(s, func(m string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(m, "**"), "**")
		return styles.Match.Render(inner)
	})
}

// RenderJSON writes results as an indented JSON array.
func RenderJSON(w io.Writer, results []*search.Result) error {
	if results == nil {
		results = []*search.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
