package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/geometry"
)

// PhotoRepository provides PostgreSQL-backed photo storage
type PhotoRepository struct {
	pool *Pool
}

// NewPhotoRepository creates a new PostgreSQL photo repository
func NewPhotoRepository(pool *Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

const photoColumns = `
	id, object_key, content_type, uploaded_at, processing_status,
	shark_bbox, zone_bbox, orientation, auto_detected, top5_candidates,
	shark_id, is_profile_photo
`

// Get retrieves a photo by id
func (r *PhotoRepository) Get(ctx context.Context, id string) (*database.Photo, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+photoColumns+" FROM photos WHERE id = $1", id)
	photo, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query photo: %w", err)
	}
	return photo, nil
}

// ValidationQueue returns photos awaiting validation, oldest first
func (r *PhotoRepository) ValidationQueue(ctx context.Context) ([]database.Photo, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE processing_status = $1 ORDER BY uploaded_at",
		database.StatusReadyForValidation,
	)
	if err != nil {
		return nil, fmt.Errorf("query validation queue: %w", err)
	}
	defer rows.Close()

	var photos []database.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

// ProfilePhotos returns photos linked to a shark and marked as its
// profile photo. Used by the embedding backfill.
func (r *PhotoRepository) ProfilePhotos(ctx context.Context) ([]database.Photo, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE is_profile_photo AND shark_id IS NOT NULL ORDER BY uploaded_at",
	)
	if err != nil {
		return nil, fmt.Errorf("query profile photos: %w", err)
	}
	defer rows.Close()

	var photos []database.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

// ValidationQueueCount returns the number of photos awaiting validation
func (r *PhotoRepository) ValidationQueueCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM photos WHERE processing_status = $1",
		database.StatusReadyForValidation,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count validation queue: %w", err)
	}
	return count, nil
}

// Create stores a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *database.Photo) error {
	sharkBBox, zoneBBox, candidates, err := marshalPhotoFields(photo)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO photos (`+photoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		photo.ID, photo.ObjectKey, photo.ContentType, photo.UploadedAt,
		photo.ProcessingStatus, sharkBBox, zoneBBox, photo.Orientation,
		photo.AutoDetected, candidates, nullString(photo.SharkID), photo.IsProfilePhoto,
	)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// Update replaces a stored photo
func (r *PhotoRepository) Update(ctx context.Context, photo *database.Photo) error {
	sharkBBox, zoneBBox, candidates, err := marshalPhotoFields(photo)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE photos SET
			object_key = $2,
			content_type = $3,
			uploaded_at = $4,
			processing_status = $5,
			shark_bbox = $6,
			zone_bbox = $7,
			orientation = $8,
			auto_detected = $9,
			top5_candidates = $10,
			shark_id = $11,
			is_profile_photo = $12
		WHERE id = $1
	`,
		photo.ID, photo.ObjectKey, photo.ContentType, photo.UploadedAt,
		photo.ProcessingStatus, sharkBBox, zoneBBox, photo.Orientation,
		photo.AutoDetected, candidates, nullString(photo.SharkID), photo.IsProfilePhoto,
	)
	if err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update photo rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes a photo
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM photos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete photo rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*database.Photo, error) {
	var photo database.Photo
	var sharkBBox, zoneBBox, candidates []byte
	var sharkID sql.NullString

	if err := row.Scan(
		&photo.ID,
		&photo.ObjectKey,
		&photo.ContentType,
		&photo.UploadedAt,
		&photo.ProcessingStatus,
		&sharkBBox,
		&zoneBBox,
		&photo.Orientation,
		&photo.AutoDetected,
		&candidates,
		&sharkID,
		&photo.IsProfilePhoto,
	); err != nil {
		return nil, err
	}

	photo.SharkID = sharkID.String

	var err error
	if photo.SharkBBox, err = unmarshalRect(sharkBBox); err != nil {
		return nil, fmt.Errorf("decode shark bbox: %w", err)
	}
	if photo.ZoneBBox, err = unmarshalRect(zoneBBox); err != nil {
		return nil, fmt.Errorf("decode zone bbox: %w", err)
	}
	if len(candidates) > 0 {
		if err := json.Unmarshal(candidates, &photo.Top5Candidates); err != nil {
			return nil, fmt.Errorf("decode candidates: %w", err)
		}
	}
	return &photo, nil
}

func marshalPhotoFields(photo *database.Photo) (sharkBBox, zoneBBox, candidates []byte, err error) {
	if sharkBBox, err = marshalRect(photo.SharkBBox); err != nil {
		return nil, nil, nil, fmt.Errorf("encode shark bbox: %w", err)
	}
	if zoneBBox, err = marshalRect(photo.ZoneBBox); err != nil {
		return nil, nil, nil, fmt.Errorf("encode zone bbox: %w", err)
	}
	if photo.Top5Candidates != nil {
		if candidates, err = json.Marshal(photo.Top5Candidates); err != nil {
			return nil, nil, nil, fmt.Errorf("encode candidates: %w", err)
		}
	}
	return sharkBBox, zoneBBox, candidates, nil
}

func marshalRect(r *geometry.Rect) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func unmarshalRect(data []byte) (*geometry.Rect, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var r geometry.Rect
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Verify interface compliance
var _ database.PhotoRepository = (*PhotoRepository)(nil)
