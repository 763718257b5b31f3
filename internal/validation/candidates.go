package validation

import "github.com/reefwatch/sharkmark/internal/catalog"

// Ranking is the candidate ranking view for one photo: a single-select
// projection of the photo's top-5 candidates, in the server's order.
// No client-side re-ranking or re-scoring happens here. The selection
// is scoped to the photo and dropped whenever the photo changes.
type Ranking struct {
	photoID    string
	candidates []catalog.Candidate
	selected   *catalog.Candidate
}

// NewRanking binds a ranking view to a photo.
func NewRanking(photo catalog.Photo) Ranking {
	return Ranking{
		photoID:    photo.ID,
		candidates: photo.Top5Candidates,
	}
}

// Candidates returns the ranked candidates in server order.
func (r *Ranking) Candidates() []catalog.Candidate {
	return r.candidates
}

// Select marks the candidate with the given shark id as selected.
// Returns false when no such candidate is ranked for this photo.
func (r *Ranking) Select(sharkID string) bool {
	for i := range r.candidates {
		if r.candidates[i].SharkID == sharkID {
			r.selected = &r.candidates[i]
			return true
		}
	}
	return false
}

// Selected returns the selected candidate, if any.
func (r *Ranking) Selected() (catalog.Candidate, bool) {
	if r.selected == nil {
		return catalog.Candidate{}, false
	}
	return *r.selected, true
}

// Clear drops the selection.
func (r *Ranking) Clear() {
	r.selected = nil
}
