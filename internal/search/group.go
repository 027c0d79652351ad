package search

import "sort"

// GroupByFile collapses results to the best-scoring chunk per file.
// Each survivor carries the number of ranked chunks its file had, and
// the groups come back sorted by score descending.
func GroupByFile(results []*Result) []*Result {
	if len(results) == 0 {
		return results
	}

	best := make(map[string]*Result, len(results))
	counts := make(map[string]int, len(results))
	for _, r := range results {
		path := r.Chunk.FilePath
		counts[path]++
		if cur, ok := best[path]; !ok || r.Score > cur.Score {
			best[path] = r
		}
	}

	grouped := make([]*Result, 0, len(best))
	for path, r := range best {
		r.TotalMatchesInFile = counts[path]
		grouped = append(grouped, r)
	}

	sort.Slice(grouped, func(i, j int) bool {
		if grouped[i].Score != grouped[j].Score {
			return grouped[i].Score > grouped[j].Score
		}
		return grouped[i].Chunk.FilePath < grouped[j].Chunk.FilePath
	})

	return grouped
}
