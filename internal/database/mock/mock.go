// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/reefwatch/sharkmark/internal/database"
)

// MockPhotoRepository is a mock implementation of database.PhotoRepository
type MockPhotoRepository struct {
	mu     sync.RWMutex
	photos map[string]*database.Photo

	// Track calls
	UpdateCalls []database.Photo
	DeleteCalls []string

	// Error injection
	GetError        error
	QueueError      error
	QueueCountError error
	CreateError     error
	UpdateError     error
	DeleteError     error
}

// NewMockPhotoRepository creates a new mock photo repository
func NewMockPhotoRepository() *MockPhotoRepository {
	return &MockPhotoRepository{
		photos: make(map[string]*database.Photo),
	}
}

// AddPhoto adds a photo to the mock store
func (m *MockPhotoRepository) AddPhoto(photo database.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[photo.ID] = &photo
}

// Get retrieves a photo by id
func (m *MockPhotoRepository) Get(ctx context.Context, id string) (*database.Photo, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	photo := *p
	return &photo, nil
}

// ValidationQueue returns photos awaiting validation, oldest first
func (m *MockPhotoRepository) ValidationQueue(ctx context.Context) ([]database.Photo, error) {
	if m.QueueError != nil {
		return nil, m.QueueError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var queue []database.Photo
	for _, p := range m.photos {
		if p.ProcessingStatus == database.StatusReadyForValidation {
			queue = append(queue, *p)
		}
	}
	for i := 1; i < len(queue); i++ {
		for j := i; j > 0 && queue[j].UploadedAt.Before(queue[j-1].UploadedAt); j-- {
			queue[j], queue[j-1] = queue[j-1], queue[j]
		}
	}
	return queue, nil
}

// ValidationQueueCount returns the number of photos awaiting validation
func (m *MockPhotoRepository) ValidationQueueCount(ctx context.Context) (int, error) {
	if m.QueueCountError != nil {
		return 0, m.QueueCountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, p := range m.photos {
		if p.ProcessingStatus == database.StatusReadyForValidation {
			count++
		}
	}
	return count, nil
}

// Create stores a new photo
func (m *MockPhotoRepository) Create(ctx context.Context, photo *database.Photo) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *photo
	m.photos[photo.ID] = &stored
	return nil
}

// Update replaces a stored photo
func (m *MockPhotoRepository) Update(ctx context.Context, photo *database.Photo) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[photo.ID]; !ok {
		return database.ErrNotFound
	}
	m.UpdateCalls = append(m.UpdateCalls, *photo)
	stored := *photo
	m.photos[photo.ID] = &stored
	return nil
}

// Delete removes a photo
func (m *MockPhotoRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[id]; !ok {
		return database.ErrNotFound
	}
	m.DeleteCalls = append(m.DeleteCalls, id)
	delete(m.photos, id)
	return nil
}

// MockSharkRepository is a mock implementation of database.SharkRepository
type MockSharkRepository struct {
	mu     sync.RWMutex
	sharks map[string]*database.Shark

	counter int

	// Track calls
	CreateCalls []database.Shark

	// Error injection
	GetError          error
	ListError         error
	CreateError       error
	DisplayNamesError error
}

// NewMockSharkRepository creates a new mock shark repository
func NewMockSharkRepository() *MockSharkRepository {
	return &MockSharkRepository{
		sharks: make(map[string]*database.Shark),
	}
}

// AddShark adds a shark to the mock store
func (m *MockSharkRepository) AddShark(shark database.Shark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sharks[shark.ID] = &shark
}

// Get retrieves a shark by id
func (m *MockSharkRepository) Get(ctx context.Context, id string) (*database.Shark, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sharks[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	shark := *s
	return &shark, nil
}

// List returns sharks whose display name contains the query
func (m *MockSharkRepository) List(ctx context.Context, query string) ([]database.Shark, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowered := strings.ToLower(query)
	var result []database.Shark
	for _, s := range m.sharks {
		if query == "" || strings.Contains(strings.ToLower(s.DisplayName), lowered) {
			result = append(result, *s)
		}
	}
	return result, nil
}

// Create stores a new shark, assigning an id when empty
func (m *MockSharkRepository) Create(ctx context.Context, shark *database.Shark) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if shark.ID == "" {
		m.counter++
		shark.ID = fmt.Sprintf("shark-%d", m.counter)
	}
	m.CreateCalls = append(m.CreateCalls, *shark)
	stored := *shark
	m.sharks[shark.ID] = &stored
	return nil
}

// DisplayNames returns all display names currently in use
func (m *MockSharkRepository) DisplayNames(ctx context.Context) (map[string]bool, error) {
	if m.DisplayNamesError != nil {
		return nil, m.DisplayNamesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]bool, len(m.sharks))
	for _, s := range m.sharks {
		names[s.DisplayName] = true
	}
	return names, nil
}

// MockEmbeddingRepository is a mock implementation of database.EmbeddingRepository
type MockEmbeddingRepository struct {
	mu      sync.RWMutex
	entries map[int64]*database.StoredEmbedding

	counter int64

	// CandidatesResult, when set, is returned by Candidates as-is.
	CandidatesResult []database.Candidate

	// Track calls
	UpsertCalls []database.StoredEmbedding

	// Error injection
	UpsertError     error
	AllError        error
	CountError      error
	CandidatesError error
}

// NewMockEmbeddingRepository creates a new mock embedding repository
func NewMockEmbeddingRepository() *MockEmbeddingRepository {
	return &MockEmbeddingRepository{
		entries: make(map[int64]*database.StoredEmbedding),
	}
}

// AddEmbedding adds an embedding to the mock store
func (m *MockEmbeddingRepository) AddEmbedding(emb database.StoredEmbedding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[emb.ID] = &emb
}

// Upsert stores an embedding, assigning an id when zero
func (m *MockEmbeddingRepository) Upsert(ctx context.Context, emb *database.StoredEmbedding) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if emb.ID == 0 {
		m.counter++
		emb.ID = m.counter
	}
	m.UpsertCalls = append(m.UpsertCalls, *emb)
	stored := *emb
	m.entries[emb.ID] = &stored
	return nil
}

// All returns every stored embedding
func (m *MockEmbeddingRepository) All(ctx context.Context) ([]database.StoredEmbedding, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.StoredEmbedding
	for _, e := range m.entries {
		result = append(result, *e)
	}
	return result, nil
}

// Count returns the number of stored embeddings
func (m *MockEmbeddingRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Candidates ranks stored embeddings against the query vector
func (m *MockEmbeddingRepository) Candidates(ctx context.Context, query []float32, orientation string, threshold float64) ([]database.Candidate, error) {
	if m.CandidatesError != nil {
		return nil, m.CandidatesError
	}
	if m.CandidatesResult != nil {
		return m.CandidatesResult, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []database.StoredEmbedding
	for _, e := range m.entries {
		entries = append(entries, *e)
	}
	entries = database.FilterByOrientation(entries, orientation)
	distances := make([]float64, len(entries))
	for i := range entries {
		distances[i] = database.CosineDistance(query, entries[i].Embedding)
	}
	return database.RankCandidates(entries, distances, threshold), nil
}

// Verify interface compliance
var _ database.PhotoRepository = (*MockPhotoRepository)(nil)
var _ database.SharkRepository = (*MockSharkRepository)(nil)
var _ database.EmbeddingRepository = (*MockEmbeddingRepository)(nil)
