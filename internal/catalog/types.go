package catalog

import (
	"time"

	"github.com/reefwatch/sharkmark/internal/geometry"
)

// ProcessingStatus is the server-side lifecycle state of a photo.
type ProcessingStatus string

// Photo lifecycle states.
const (
	StatusUploaded           ProcessingStatus = "uploaded"
	StatusProcessing         ProcessingStatus = "processing"
	StatusReadyForValidation ProcessingStatus = "ready_for_validation"
	StatusValidated          ProcessingStatus = "validated"
	StatusError              ProcessingStatus = "error"
)

// Orientation tags which side of the animal faces the camera.
type Orientation string

// Orientation values.
const (
	FaceLeft  Orientation = "face_left"
	FaceRight Orientation = "face_right"
)

// Candidate is a ranked identity proposal for a photo. Candidates for
// one photo are distinct by SharkID and ordered by descending score.
type Candidate struct {
	SharkID     string  `json:"shark_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// Photo is a catalog photo as served by the API.
//
// SharkBBox is relative to the full image; ZoneBBox is relative to the
// shark crop. AutoDetected is true while the boxes came from the
// detector and no person has confirmed them yet.
type Photo struct {
	ID               string           `json:"id"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	SharkBBox        *geometry.Rect   `json:"shark_bbox,omitempty"`
	ZoneBBox         *geometry.Rect   `json:"zone_bbox,omitempty"`
	Orientation      Orientation      `json:"orientation,omitempty"`
	AutoDetected     bool             `json:"auto_detected"`
	Top5Candidates   []Candidate      `json:"top5_candidates,omitempty"`
	SharkID          string           `json:"shark_id,omitempty"`
	IsProfilePhoto   bool             `json:"is_profile_photo"`
	UploadedAt       time.Time        `json:"uploaded_at"`
	URL              string           `json:"url,omitempty"`
}

// Shark is a catalog identity.
type Shark struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	NameStatus  string `json:"name_status"`
}

// Name status values for a shark.
const (
	NameStatusTemporary = "temporary"
	NameStatusConfirmed = "confirmed"
)

// AnnotateRequest is the payload for POST /photos/{id}/annotate.
// SharkBBox is image-relative, ZoneBBox is shark-crop-relative; the
// conversion to image space never crosses the wire.
type AnnotateRequest struct {
	SharkBBox   geometry.Rect `json:"shark_bbox"`
	ZoneBBox    geometry.Rect `json:"zone_bbox"`
	Orientation Orientation   `json:"orientation"`
}

// ValidateRequest is the payload for POST /photos/{id}/validate.
type ValidateRequest struct {
	Action            string `json:"action"`
	SharkID           string `json:"shark_id,omitempty"`
	SharkName         string `json:"shark_name,omitempty"`
	NameStatus        string `json:"name_status,omitempty"`
	SetAsProfilePhoto bool   `json:"set_as_profile_photo,omitempty"`
}

// Validate action names on the wire.
const (
	ActionConfirm = "confirm"
	ActionSelect  = "select"
	ActionCreate  = "create"
	ActionUnlink  = "unlink"
)

// CreateSharkRequest is the payload for POST /sharks.
type CreateSharkRequest struct {
	DisplayName string `json:"display_name"`
	NameStatus  string `json:"name_status,omitempty"`
}

// QueueCount is the response of GET /photos/validation-queue/count.
type QueueCount struct {
	Count int `json:"count"`
}

type suggestedName struct {
	Name string `json:"name"`
}
