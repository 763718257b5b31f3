package database

import (
	"time"

	"github.com/reefwatch/sharkmark/internal/geometry"
)

// Photo lifecycle states, mirrored on the wire.
const (
	StatusUploaded           = "uploaded"
	StatusProcessing         = "processing"
	StatusReadyForValidation = "ready_for_validation"
	StatusValidated          = "validated"
	StatusError              = "error"
)

// Shark name statuses.
const (
	NameStatusTemporary = "temporary"
	NameStatusConfirmed = "confirmed"
)

// Candidate is a ranked identity proposal stored with a photo.
type Candidate struct {
	SharkID     string  `json:"shark_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// Photo is a catalog photo record.
//
// SharkBBox is relative to the full image, ZoneBBox to the shark crop;
// both are stored exactly as annotated and never converted.
type Photo struct {
	ID               string
	ObjectKey        string
	ContentType      string
	UploadedAt       time.Time
	ProcessingStatus string
	SharkBBox        *geometry.Rect
	ZoneBBox         *geometry.Rect
	Orientation      string
	AutoDetected     bool
	Top5Candidates   []Candidate
	SharkID          string
	IsProfilePhoto   bool
}

// Shark is a catalog identity record.
type Shark struct {
	ID          string
	DisplayName string
	NameStatus  string
	CreatedAt   time.Time
}

// StoredEmbedding is a reference embedding for a known shark, pushed by
// the ML collaborator when a photo becomes a profile photo.
type StoredEmbedding struct {
	ID          int64
	SharkID     string
	DisplayName string
	PhotoID     string
	Orientation string
	Embedding   []float32
	CreatedAt   time.Time
}
