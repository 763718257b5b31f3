package database

import (
	"math"
	"testing"
)

func entry(id int64, sharkID, name, orientation string, vec ...float32) StoredEmbedding {
	return StoredEmbedding{
		ID:          id,
		SharkID:     sharkID,
		DisplayName: name,
		Orientation: orientation,
		Embedding:   vec,
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); d > 1e-9 {
		t.Errorf("identical vectors: distance = %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors: distance = %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Errorf("opposite vectors: distance = %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0, 0}); d != 2.0 {
		t.Errorf("mismatched dims: distance = %v", d)
	}
	if d := CosineDistance([]float32{0, 0}, []float32{1, 0}); d != 2.0 {
		t.Errorf("zero vector: distance = %v", d)
	}
}

func TestRankCandidates_DedupeAndOrder(t *testing.T) {
	entries := []StoredEmbedding{
		entry(1, "s1", "Hermione", ""),
		entry(2, "s2", "Luna", ""),
		entry(3, "s1", "Hermione", ""), // second embedding, better score
		entry(4, "s3", "Fleur", ""),
	}
	distances := []float64{0.3, 0.2, 0.1, 0.5}

	got := RankCandidates(entries, distances, 0.55)
	if len(got) != 2 {
		t.Fatalf("candidates = %v", got)
	}
	// s1 keeps its best score (1-0.1=0.9) and ranks first; s3 at
	// 1-0.5=0.5 falls below the threshold.
	if got[0].SharkID != "s1" || got[0].Score != 0.9 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].SharkID != "s2" || got[1].Score != 0.8 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestRankCandidates_CapsAtTopK(t *testing.T) {
	var entries []StoredEmbedding
	var distances []float64
	for i := 0; i < 8; i++ {
		entries = append(entries, entry(int64(i), string(rune('a'+i)), "n", ""))
		distances = append(distances, float64(i)*0.01)
	}
	got := RankCandidates(entries, distances, 0.0)
	if len(got) != TopKCandidates {
		t.Errorf("len = %d, want %d", len(got), TopKCandidates)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("not ordered by descending score: %v", got)
		}
	}
}

func TestFilterByOrientation(t *testing.T) {
	entries := []StoredEmbedding{
		entry(1, "s1", "a", "face_left"),
		entry(2, "s2", "b", "face_right"),
		entry(3, "s3", "c", ""),
	}

	left := FilterByOrientation(entries, "face_left")
	if len(left) != 1 || left[0].SharkID != "s1" {
		t.Errorf("face_left filter = %v", left)
	}

	// No orientation: everything passes.
	if all := FilterByOrientation(entries, ""); len(all) != 3 {
		t.Errorf("empty orientation filter = %v", all)
	}

	// No entry carries the tag: fall back to the full set.
	legacy := []StoredEmbedding{entry(1, "s1", "a", ""), entry(2, "s2", "b", "")}
	if all := FilterByOrientation(legacy, "face_left"); len(all) != 2 {
		t.Errorf("legacy fallback = %v", all)
	}
}

func TestHNSWEmbeddingIndex(t *testing.T) {
	index := NewHNSWEmbeddingIndex()
	if _, _, err := index.Search([]float32{1, 0}, 3); err == nil {
		t.Error("search on empty index should fail")
	}

	entries := []StoredEmbedding{
		entry(1, "s1", "a", "", 1, 0, 0),
		entry(2, "s2", "b", "", 0, 1, 0),
		entry(3, "s3", "c", "", 0.9, 0.1, 0),
	}
	index.BuildFromEntries(entries)
	if index.Count() != 3 {
		t.Fatalf("count = %d", index.Count())
	}

	ids, distances, err := index.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 {
		t.Errorf("ids = %v", ids)
	}
	if distances[0] > 1e-6 {
		t.Errorf("nearest distance = %v", distances[0])
	}
	if e := index.GetEntry(1); e == nil || e.SharkID != "s1" {
		t.Errorf("GetEntry(1) = %+v", e)
	}

	index.Add(&StoredEmbedding{ID: 4, SharkID: "s4", DisplayName: "d", Embedding: []float32{0, 0, 1}})
	if index.Count() != 4 {
		t.Errorf("count after Add = %d", index.Count())
	}
}
