// Package database defines the repository interfaces and shared types
// of the sharkmark store, plus the in-memory candidate ranking that
// runs on top of stored embeddings.
package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PhotoRepository stores catalog photos.
type PhotoRepository interface {
	Get(ctx context.Context, id string) (*Photo, error)
	ValidationQueue(ctx context.Context) ([]Photo, error)
	ValidationQueueCount(ctx context.Context) (int, error)
	Create(ctx context.Context, photo *Photo) error
	Update(ctx context.Context, photo *Photo) error
	Delete(ctx context.Context, id string) error
}

// SharkRepository stores catalog identities.
type SharkRepository interface {
	Get(ctx context.Context, id string) (*Shark, error)
	List(ctx context.Context, query string) ([]Shark, error)
	Create(ctx context.Context, shark *Shark) error
	DisplayNames(ctx context.Context) (map[string]bool, error)
}

// EmbeddingRepository stores reference embeddings and answers
// nearest-neighbor candidate queries.
type EmbeddingRepository interface {
	Upsert(ctx context.Context, emb *StoredEmbedding) error
	All(ctx context.Context) ([]StoredEmbedding, error)
	Count(ctx context.Context) (int, error)
	Candidates(ctx context.Context, query []float32, orientation string, threshold float64) ([]Candidate, error)
}
