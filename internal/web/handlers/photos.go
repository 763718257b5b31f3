package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reefwatch/sharkmark/internal/catalog"
	"github.com/reefwatch/sharkmark/internal/crop"
	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/geometry"
	"github.com/reefwatch/sharkmark/internal/ml"
	"github.com/reefwatch/sharkmark/internal/storage"
)

// backgroundTimeout bounds the classify and embedding-push tasks that
// outlive their triggering request.
const backgroundTimeout = 5 * time.Minute

// Embedder is the subset of the ML client the photo handlers need.
type Embedder interface {
	Detect(ctx context.Context, image []byte, contentType string) (*ml.DetectResult, error)
	Embed(ctx context.Context, image []byte, contentType string, shark, zone *geometry.Rect) ([]float32, error)
}

// PhotosHandler serves the photo endpoints.
type PhotosHandler struct {
	photos     database.PhotoRepository
	sharks     database.SharkRepository
	embeddings database.EmbeddingRepository
	ml         Embedder
	store      storage.Store
	threshold  float64

	// spawn runs a background task. Tests replace it to run inline.
	spawn func(task func())
}

// NewPhotosHandler creates a photos handler.
func NewPhotosHandler(
	photos database.PhotoRepository,
	sharks database.SharkRepository,
	embeddings database.EmbeddingRepository,
	mlClient Embedder,
	store storage.Store,
	threshold float64,
) *PhotosHandler {
	return &PhotosHandler{
		photos:     photos,
		sharks:     sharks,
		embeddings: embeddings,
		ml:         mlClient,
		store:      store,
		threshold:  threshold,
		spawn:      func(task func()) { go task() },
	}
}

// toWirePhoto converts a stored photo to its API representation.
func toWirePhoto(p *database.Photo) catalog.Photo {
	wire := catalog.Photo{
		ID:               p.ID,
		ProcessingStatus: catalog.ProcessingStatus(p.ProcessingStatus),
		SharkBBox:        p.SharkBBox,
		ZoneBBox:         p.ZoneBBox,
		Orientation:      catalog.Orientation(p.Orientation),
		AutoDetected:     p.AutoDetected,
		SharkID:          p.SharkID,
		IsProfilePhoto:   p.IsProfilePhoto,
		UploadedAt:       p.UploadedAt,
		URL:              "/api/v1/photos/" + p.ID + "/crop",
	}
	for _, c := range p.Top5Candidates {
		wire.Top5Candidates = append(wire.Top5Candidates, catalog.Candidate{
			SharkID:     c.SharkID,
			DisplayName: c.DisplayName,
			Score:       c.Score,
		})
	}
	return wire
}

func (h *PhotosHandler) getPhotoOr404(w http.ResponseWriter, r *http.Request) *database.Photo {
	photoID := chi.URLParam(r, "id")
	photo, err := h.photos.Get(r.Context(), photoID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Photo not found")
		return nil
	}
	if err != nil {
		log.Printf("Failed to load photo %s: %v", sanitizeForLog(photoID), err)
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return nil
	}
	return photo
}

// ValidationQueue handles GET /photos/validation-queue.
func (h *PhotosHandler) ValidationQueue(w http.ResponseWriter, r *http.Request) {
	photos, err := h.photos.ValidationQueue(r.Context())
	if err != nil {
		log.Printf("Failed to load validation queue: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load validation queue")
		return
	}

	wire := make([]catalog.Photo, 0, len(photos))
	for i := range photos {
		wire = append(wire, toWirePhoto(&photos[i]))
	}
	respondJSON(w, http.StatusOK, wire)
}

// QueueCount handles GET /photos/validation-queue/count.
func (h *PhotosHandler) QueueCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.photos.ValidationQueueCount(r.Context())
	if err != nil {
		log.Printf("Failed to count validation queue: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count validation queue")
		return
	}
	respondJSON(w, http.StatusOK, catalog.QueueCount{Count: count})
}

// Get handles GET /photos/{id}.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	photo := h.getPhotoOr404(w, r)
	if photo == nil {
		return
	}
	respondJSON(w, http.StatusOK, toWirePhoto(photo))
}

// Annotate handles POST /photos/{id}/annotate. The user-drawn boxes
// replace whatever the detector proposed, the candidate list is
// cleared, and classification re-runs in the background.
func (h *PhotosHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	photo := h.getPhotoOr404(w, r)
	if photo == nil {
		return
	}

	var body catalog.AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if body.Orientation != catalog.FaceLeft && body.Orientation != catalog.FaceRight {
		respondError(w, http.StatusUnprocessableEntity, "orientation must be face_left or face_right")
		return
	}

	sharkBBox := body.SharkBBox
	zoneBBox := body.ZoneBBox
	photo.SharkBBox = &sharkBBox
	photo.ZoneBBox = &zoneBBox
	photo.Orientation = string(body.Orientation)
	photo.AutoDetected = false
	photo.ProcessingStatus = database.StatusProcessing
	photo.Top5Candidates = nil

	if err := h.photos.Update(r.Context(), photo); err != nil {
		log.Printf("Failed to save annotation for photo %s: %v", sanitizeForLog(photo.ID), err)
		respondError(w, http.StatusInternalServerError, "failed to save annotation")
		return
	}

	photoID := photo.ID
	h.spawn(func() { h.classify(photoID) })

	respondJSON(w, http.StatusOK, toWirePhoto(photo))
}

// Validate handles POST /photos/{id}/validate. The four actions link,
// relink or unlink an identity; the photo always leaves the queue on
// success.
func (h *PhotosHandler) Validate(w http.ResponseWriter, r *http.Request) {
	photo := h.getPhotoOr404(w, r)
	if photo == nil {
		return
	}

	var body catalog.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if photo.ProcessingStatus != database.StatusReadyForValidation {
		respondError(w, http.StatusConflict, "Photo is not in the validation queue")
		return
	}

	var shark *database.Shark

	switch body.Action {
	case catalog.ActionConfirm, catalog.ActionSelect:
		if body.SharkID == "" {
			respondError(w, http.StatusUnprocessableEntity, "shark_id required for this action")
			return
		}
		var err error
		shark, err = h.sharks.Get(r.Context(), body.SharkID)
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Shark not found")
			return
		}
		if err != nil {
			log.Printf("Failed to load shark %s: %v", sanitizeForLog(body.SharkID), err)
			respondError(w, http.StatusInternalServerError, "failed to load shark")
			return
		}
		photo.SharkID = shark.ID

	case catalog.ActionCreate:
		if body.SharkName == "" {
			respondError(w, http.StatusUnprocessableEntity, "shark_name required for action 'create'")
			return
		}
		nameStatus := body.NameStatus
		if nameStatus == "" {
			nameStatus = database.NameStatusTemporary
		}
		shark = &database.Shark{
			ID:          uuid.NewString(),
			DisplayName: body.SharkName,
			NameStatus:  nameStatus,
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.sharks.Create(r.Context(), shark); err != nil {
			log.Printf("Failed to create shark: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to create shark")
			return
		}
		photo.SharkID = shark.ID

	case catalog.ActionUnlink:
		photo.SharkID = ""

	default:
		respondError(w, http.StatusUnprocessableEntity, "unknown action")
		return
	}

	if body.SetAsProfilePhoto && photo.SharkID != "" {
		photo.IsProfilePhoto = true
	}

	photo.ProcessingStatus = database.StatusValidated

	if err := h.photos.Update(r.Context(), photo); err != nil {
		log.Printf("Failed to validate photo %s: %v", sanitizeForLog(photo.ID), err)
		respondError(w, http.StatusInternalServerError, "failed to validate photo")
		return
	}

	// The embedding push runs only once the validated photo is
	// persisted; a failed validation must not feed candidate ranking.
	if body.SetAsProfilePhoto && photo.SharkID != "" {
		photoID := photo.ID
		sharkID := photo.SharkID
		displayName := ""
		if shark != nil {
			displayName = shark.DisplayName
		}
		h.spawn(func() { h.storeEmbedding(photoID, sharkID, displayName) })
	}

	respondJSON(w, http.StatusOK, toWirePhoto(photo))
}

// Crop handles GET /photos/{id}/crop. By default the shark crop is
// rendered; ?zone=true renders the identification zone instead,
// converted to full-image coordinates. ?size=N scales the result to
// fit an NxN box.
func (h *PhotosHandler) Crop(w http.ResponseWriter, r *http.Request) {
	photo := h.getPhotoOr404(w, r)
	if photo == nil {
		return
	}
	if photo.SharkBBox == nil {
		respondError(w, http.StatusUnprocessableEntity, "photo has no shark annotation")
		return
	}

	maxSize := 0
	if sizeParam := r.URL.Query().Get("size"); sizeParam != "" {
		parsed, err := strconv.Atoi(sizeParam)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusUnprocessableEntity, "size must be a positive integer")
			return
		}
		maxSize = parsed
	}

	rect := *photo.SharkBBox
	if r.URL.Query().Get("zone") == "true" {
		if photo.ZoneBBox == nil {
			respondError(w, http.StatusUnprocessableEntity, "photo has no zone annotation")
			return
		}
		rect = geometry.ToImageSpace(*photo.ZoneBBox, *photo.SharkBBox)
	}

	image, err := h.store.Fetch(r.Context(), photo.ObjectKey)
	if err != nil {
		log.Printf("Failed to fetch photo object %s: %v", sanitizeForLog(photo.ObjectKey), err)
		respondError(w, http.StatusBadGateway, "failed to fetch photo")
		return
	}

	rendered, err := crop.Render(image, rect)
	if err != nil {
		log.Printf("Failed to render crop for photo %s: %v", sanitizeForLog(photo.ID), err)
		respondError(w, http.StatusInternalServerError, "failed to render crop")
		return
	}

	if maxSize > 0 {
		rendered, err = crop.ResizeToFit(rendered, maxSize)
		if err != nil {
			log.Printf("Failed to resize crop for photo %s: %v", sanitizeForLog(photo.ID), err)
			respondError(w, http.StatusInternalServerError, "failed to render crop")
			return
		}
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
}

// Delete handles DELETE /photos/{id}.
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")
	err := h.photos.Delete(r.Context(), photoID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		log.Printf("Failed to delete photo %s: %v", sanitizeForLog(photoID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete photo")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// classify runs detection and candidate ranking for a photo and moves
// it into the validation queue. Any failure parks the photo in the
// error state with an empty candidate list.
func (h *PhotosHandler) classify(photoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	photo, err := h.photos.Get(ctx, photoID)
	if err != nil {
		log.Printf("Classify: photo %s disappeared: %v", sanitizeForLog(photoID), err)
		return
	}

	photo.ProcessingStatus = database.StatusProcessing
	if err := h.photos.Update(ctx, photo); err != nil {
		log.Printf("Classify: failed to mark photo %s processing: %v", sanitizeForLog(photoID), err)
		return
	}

	if err := h.classifyPhoto(ctx, photo); err != nil {
		log.Printf("Classify: photo %s failed: %v", sanitizeForLog(photoID), err)
		photo.ProcessingStatus = database.StatusError
		photo.Top5Candidates = []database.Candidate{}
		if updateErr := h.photos.Update(ctx, photo); updateErr != nil {
			log.Printf("Classify: failed to set error status for photo %s: %v", sanitizeForLog(photoID), updateErr)
		}
		return
	}

	photo.ProcessingStatus = database.StatusReadyForValidation
	if err := h.photos.Update(ctx, photo); err != nil {
		log.Printf("Classify: failed to finish photo %s: %v", sanitizeForLog(photoID), err)
	}
}

func (h *PhotosHandler) classifyPhoto(ctx context.Context, photo *database.Photo) error {
	image, err := h.store.Fetch(ctx, photo.ObjectKey)
	if err != nil {
		return err
	}

	// Auto-detect boxes when no annotation exists yet.
	if photo.SharkBBox == nil || photo.ZoneBBox == nil {
		detected, err := h.ml.Detect(ctx, image, photo.ContentType)
		if err != nil {
			return err
		}
		if detected.SharkBBox != nil && detected.ZoneBBox != nil {
			photo.SharkBBox = detected.SharkBBox
			photo.ZoneBBox = detected.ZoneBBox
			photo.AutoDetected = true
			if err := h.photos.Update(ctx, photo); err != nil {
				return err
			}
		}
	}

	embedding, err := h.ml.Embed(ctx, image, photo.ContentType, photo.SharkBBox, photo.ZoneBBox)
	if err != nil {
		return err
	}

	candidates, err := h.embeddings.Candidates(ctx, embedding, photo.Orientation, h.threshold)
	if err != nil {
		return err
	}
	if candidates == nil {
		candidates = []database.Candidate{}
	}
	photo.Top5Candidates = candidates
	return nil
}

// storeEmbedding extracts a reference embedding for a freshly linked
// profile photo and stores it for future candidate ranking.
func (h *PhotosHandler) storeEmbedding(photoID, sharkID, displayName string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	photo, err := h.photos.Get(ctx, photoID)
	if err != nil {
		log.Printf("Embedding push: photo %s disappeared: %v", sanitizeForLog(photoID), err)
		return
	}

	image, err := h.store.Fetch(ctx, photo.ObjectKey)
	if err != nil {
		log.Printf("Embedding push: failed to fetch photo %s: %v", sanitizeForLog(photoID), err)
		return
	}

	embedding, err := h.ml.Embed(ctx, image, photo.ContentType, photo.SharkBBox, photo.ZoneBBox)
	if err != nil {
		log.Printf("Embedding push: failed to embed photo %s: %v", sanitizeForLog(photoID), err)
		return
	}

	emb := database.StoredEmbedding{
		SharkID:     sharkID,
		DisplayName: displayName,
		PhotoID:     photoID,
		Orientation: photo.Orientation,
		Embedding:   embedding,
	}
	if err := h.embeddings.Upsert(ctx, &emb); err != nil {
		log.Printf("Embedding push: failed to store embedding for photo %s / shark %s: %v",
			sanitizeForLog(photoID), sanitizeForLog(sharkID), err)
	}
}
