package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWEmbeddingIndex is an in-memory approximate-nearest-neighbor index
// over stored embeddings, keyed by database id. It exists so candidate
// ranking does not hit postgres on every classify.
type HNSWEmbeddingIndex struct {
	graph     *hnsw.Graph[int64]
	idToEntry map[int64]*StoredEmbedding
	mu        sync.RWMutex
}

// NewHNSWEmbeddingIndex creates an empty index.
func NewHNSWEmbeddingIndex() *HNSWEmbeddingIndex {
	return &HNSWEmbeddingIndex{
		idToEntry: make(map[int64]*StoredEmbedding),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// BuildFromEntries replaces the index contents with the given entries.
func (h *HNSWEmbeddingIndex) BuildFromEntries(entries []StoredEmbedding) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(entries) == 0 {
		h.graph = nil
		h.idToEntry = make(map[int64]*StoredEmbedding)
		return
	}

	g := newGraph()
	h.idToEntry = make(map[int64]*StoredEmbedding, len(entries))
	for i := range entries {
		entry := &entries[i]
		if len(entry.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(entry.ID, entry.Embedding))
		h.idToEntry[entry.ID] = entry
	}
	h.graph = g
}

// Add inserts or replaces a single entry.
func (h *HNSWEmbeddingIndex) Add(entry *StoredEmbedding) {
	if len(entry.Embedding) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph == nil {
		h.graph = newGraph()
	}
	h.graph.Add(hnsw.MakeNode(entry.ID, entry.Embedding))
	h.idToEntry[entry.ID] = entry
}

// Search returns up to k neighbor ids with exact cosine distances,
// recomputed from the node values so graph shortcuts cannot skew the
// scores.
func (h *HNSWEmbeddingIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)
	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		if len(n.Value) > 0 {
			distances[i] = CosineDistance(query, n.Value)
		}
	}
	return ids, distances, nil
}

// GetEntry returns the entry for a given id, or nil.
func (h *HNSWEmbeddingIndex) GetEntry(id int64) *StoredEmbedding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToEntry[id]
}

// Count returns the number of indexed entries.
func (h *HNSWEmbeddingIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToEntry)
}
