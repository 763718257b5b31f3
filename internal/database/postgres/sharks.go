package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reefwatch/sharkmark/internal/database"
)

// SharkRepository provides PostgreSQL-backed identity storage
type SharkRepository struct {
	pool *Pool
}

// NewSharkRepository creates a new PostgreSQL shark repository
func NewSharkRepository(pool *Pool) *SharkRepository {
	return &SharkRepository{pool: pool}
}

// Get retrieves a shark by id
func (r *SharkRepository) Get(ctx context.Context, id string) (*database.Shark, error) {
	var shark database.Shark
	err := r.pool.QueryRow(ctx,
		"SELECT id, display_name, name_status, created_at FROM sharks WHERE id = $1", id,
	).Scan(&shark.ID, &shark.DisplayName, &shark.NameStatus, &shark.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query shark: %w", err)
	}
	return &shark, nil
}

// List returns sharks whose display name contains the query, ordered by name.
// An empty query returns everything.
func (r *SharkRepository) List(ctx context.Context, query string) ([]database.Shark, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, name_status, created_at
		FROM sharks
		WHERE $1 = '' OR display_name ILIKE '%' || $1 || '%'
		ORDER BY display_name
	`, query)
	if err != nil {
		return nil, fmt.Errorf("query sharks: %w", err)
	}
	defer rows.Close()

	var sharks []database.Shark
	for rows.Next() {
		var shark database.Shark
		if err := rows.Scan(&shark.ID, &shark.DisplayName, &shark.NameStatus, &shark.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shark: %w", err)
		}
		sharks = append(sharks, shark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sharks: %w", err)
	}
	return sharks, nil
}

// Create stores a new shark
func (r *SharkRepository) Create(ctx context.Context, shark *database.Shark) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sharks (id, display_name, name_status, created_at)
		VALUES ($1, $2, $3, $4)
	`, shark.ID, shark.DisplayName, shark.NameStatus, shark.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert shark: %w", err)
	}
	return nil
}

// DisplayNames returns all display names currently in use
func (r *SharkRepository) DisplayNames(ctx context.Context) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, "SELECT display_name FROM sharks")
	if err != nil {
		return nil, fmt.Errorf("query display names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan display name: %w", err)
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate display names: %w", err)
	}
	return names, nil
}

// Verify interface compliance
var _ database.SharkRepository = (*SharkRepository)(nil)
