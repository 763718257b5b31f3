package database

import (
	"math"
	"sort"
)

// FilterByOrientation keeps the entries tagged with the given
// orientation. When none carry a matching tag (legacy data, or a shark
// only ever seen from one side) the full set is returned instead, so an
// orientation mismatch degrades rather than empties the ranking.
func FilterByOrientation(entries []StoredEmbedding, orientation string) []StoredEmbedding {
	if orientation == "" {
		return entries
	}
	var oriented []StoredEmbedding
	for _, e := range entries {
		if e.Orientation == orientation {
			oriented = append(oriented, e)
		}
	}
	if len(oriented) == 0 {
		return entries
	}
	return oriented
}

// RankCandidates turns neighbor search results into the top-5 candidate
// list: scores are 1 − cosine distance, entries below the threshold are
// dropped, multiple embeddings per shark are deduplicated keeping the
// best score, and the result is ordered by descending score.
func RankCandidates(entries []StoredEmbedding, distances []float64, threshold float64) []Candidate {
	best := make(map[string]Candidate)
	for i := range entries {
		score := roundScore(1.0 - distances[i])
		if score < threshold {
			continue
		}
		sharkID := entries[i].SharkID
		if existing, ok := best[sharkID]; ok && existing.Score >= score {
			continue
		}
		best[sharkID] = Candidate{
			SharkID:     sharkID,
			DisplayName: entries[i].DisplayName,
			Score:       score,
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SharkID < candidates[j].SharkID
	})

	if len(candidates) > TopKCandidates {
		candidates = candidates[:TopKCandidates]
	}
	return candidates
}

func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
