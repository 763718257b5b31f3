package database

// HNSW graph parameters for the in-memory embedding index.
const (
	HNSWMaxNeighbors = 16
	HNSWEfSearch     = 60
)

// Candidate ranking parameters.
const (
	// TopKCandidates is the maximum number of candidates returned per
	// photo.
	TopKCandidates = 5

	// CandidateOverfetch widens the neighbor search so per-shark
	// deduplication can still fill the top 5.
	CandidateOverfetch = 4

	// DefaultScoreThreshold is the minimum cosine similarity a stored
	// embedding must reach to be proposed as a candidate.
	DefaultScoreThreshold = 0.55
)
