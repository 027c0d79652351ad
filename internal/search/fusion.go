package search

import (
	"sort"

	"github.com/sema-sh/sema/internal/store"
)

// rrfConstant is the standard RRF smoothing parameter. k=60 is the
// usual cross-domain default.
const rrfConstant = 60

// fuseRRF combines lexical and vector hit lists with Reciprocal Rank
// Fusion: score(d) = Σ 1/(k + rank_i), ranks 1-indexed. A document
// missing from one list contributes that list's score at rank
// max(len(a), len(b)) + 1. Scores are normalized so the best hit is 1.
func fuseRRF(lexical, vector []*store.Hit) []*store.Hit {
	if len(lexical) == 0 && len(vector) == 0 {
		return []*store.Hit{}
	}

	type fused struct {
		id       string
		score    float64
		lexRank  int
		lexScore float64
	}

	scores := make(map[string]*fused, len(lexical)+len(vector))
	get := func(id string) *fused {
		if f, ok := scores[id]; ok {
			return f
		}
		f := &fused{id: id}
		scores[id] = f
		return f
	}

	for rank, h := range lexical {
		f := get(h.ID)
		f.lexRank = rank + 1
		f.lexScore = h.Score
		f.score += 1 / float64(rrfConstant+rank+1)
	}
	for rank, h := range vector {
		f := get(h.ID)
		f.score += 1 / float64(rrfConstant+rank+1)
	}

	missingRank := len(lexical) + 1
	if len(vector) >= len(lexical) {
		missingRank = len(vector) + 1
	}
	seen := make(map[string]bool, len(vector))
	for _, h := range vector {
		seen[h.ID] = true
	}
	for _, f := range scores {
		if f.lexRank == 0 {
			f.score += 1 / float64(rrfConstant+missingRank)
		}
		if !seen[f.id] {
			f.score += 1 / float64(rrfConstant+missingRank)
		}
	}

	all := make([]*fused, 0, len(scores))
	for _, f := range scores {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		if all[i].lexScore != all[j].lexScore {
			return all[i].lexScore > all[j].lexScore
		}
		return all[i].id < all[j].id
	})

	max := all[0].score
	hits := make([]*store.Hit, len(all))
	for i, f := range all {
		score := f.score
		if max > 0 {
			score /= max
		}
		hits[i] = &store.Hit{ID: f.id, Score: score}
	}
	return hits
}
