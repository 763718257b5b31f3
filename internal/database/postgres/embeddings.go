package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/reefwatch/sharkmark/internal/database"
)

// EmbeddingRepository provides PostgreSQL-backed embedding storage with an
// optional in-memory HNSW index for candidate queries.
type EmbeddingRepository struct {
	pool        *Pool
	hnswIndex   *database.HNSWEmbeddingIndex
	hnswEnabled bool
	hnswMu      sync.RWMutex
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Upsert stores an embedding, replacing any previous one for the same
// photo. The assigned id is written back into emb.
func (r *EmbeddingRepository) Upsert(ctx context.Context, emb *database.StoredEmbedding) error {
	vec := pgvector.NewVector(emb.Embedding)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO embeddings (shark_id, display_name, photo_id, orientation, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		ON CONFLICT (photo_id) DO UPDATE SET
			shark_id = EXCLUDED.shark_id,
			display_name = EXCLUDED.display_name,
			orientation = EXCLUDED.orientation,
			embedding = EXCLUDED.embedding,
			created_at = NOW()
		RETURNING id, created_at
	`, emb.SharkID, emb.DisplayName, emb.PhotoID, emb.Orientation, vec).Scan(&emb.ID, &emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}

	r.hnswMu.RLock()
	hnswEnabled := r.hnswEnabled && r.hnswIndex != nil
	r.hnswMu.RUnlock()

	if hnswEnabled {
		stored := *emb
		r.hnswIndex.Add(&stored)
	}
	return nil
}

// All returns every stored embedding
func (r *EmbeddingRepository) All(ctx context.Context) ([]database.StoredEmbedding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, shark_id, display_name, photo_id, orientation, embedding, created_at
		FROM embeddings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query all embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

// Count returns the total number of embeddings stored
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Candidates ranks stored embeddings against the query vector and
// returns the top candidates above the threshold. Uses the in-memory
// HNSW index when enabled, otherwise falls back to PostgreSQL.
func (r *EmbeddingRepository) Candidates(ctx context.Context, query []float32, orientation string, threshold float64) ([]database.Candidate, error) {
	limit := database.TopKCandidates * database.CandidateOverfetch

	r.hnswMu.RLock()
	hnswEnabled := r.hnswEnabled && r.hnswIndex != nil
	r.hnswMu.RUnlock()

	var entries []database.StoredEmbedding
	var err error
	if hnswEnabled {
		entries, err = r.neighborsHNSW(query, limit)
	} else {
		entries, err = r.neighborsPostgres(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}

	entries = database.FilterByOrientation(entries, orientation)
	distances := make([]float64, len(entries))
	for i := range entries {
		distances[i] = database.CosineDistance(query, entries[i].Embedding)
	}
	return database.RankCandidates(entries, distances, threshold), nil
}

func (r *EmbeddingRepository) neighborsHNSW(query []float32, limit int) ([]database.StoredEmbedding, error) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	ids, _, err := r.hnswIndex.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("HNSW search: %w", err)
	}

	entries := make([]database.StoredEmbedding, 0, len(ids))
	for _, id := range ids {
		if entry := r.hnswIndex.GetEntry(id); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (r *EmbeddingRepository) neighborsPostgres(ctx context.Context, query []float32, limit int) ([]database.StoredEmbedding, error) {
	// Transaction scope for SET LOCAL ef_search.
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	vec := pgvector.NewVector(query)
	rows, err := tx.QueryContext(ctx, `
		SELECT id, shark_id, display_name, photo_id, orientation, embedding, created_at
		FROM embeddings
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar embeddings: %w", err)
	}
	defer rows.Close()

	return scanEmbeddings(rows)
}

func scanEmbeddings(rows *sql.Rows) ([]database.StoredEmbedding, error) {
	var entries []database.StoredEmbedding
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec pgvector.Vector

		if err := rows.Scan(
			&emb.ID,
			&emb.SharkID,
			&emb.DisplayName,
			&emb.PhotoID,
			&emb.Orientation,
			&vec,
			&emb.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		emb.Embedding = vec.Slice()
		entries = append(entries, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return entries, nil
}

// EnableHNSW builds the in-memory HNSW index from PostgreSQL data.
// This should be called once at startup.
func (r *EmbeddingRepository) EnableHNSW(ctx context.Context) error {
	entries, err := r.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load embeddings: %w", err)
	}

	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndex = database.NewHNSWEmbeddingIndex()
	r.hnswIndex.BuildFromEntries(entries)
	r.hnswEnabled = true
	return nil
}

// DisableHNSW disables the in-memory HNSW index, falling back to PostgreSQL queries
func (r *EmbeddingRepository) DisableHNSW() {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()
	r.hnswEnabled = false
	r.hnswIndex = nil
}

// IsHNSWEnabled returns whether the in-memory HNSW index is enabled
func (r *EmbeddingRepository) IsHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// HNSWCount returns the number of embeddings in the HNSW index
func (r *EmbeddingRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// RebuildHNSW rebuilds the HNSW index from PostgreSQL data
func (r *EmbeddingRepository) RebuildHNSW(ctx context.Context) error {
	return r.EnableHNSW(ctx)
}

// Verify interface compliance
var _ database.EmbeddingRepository = (*EmbeddingRepository)(nil)
