package handlers

import (
	"bytes"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reefwatch/sharkmark/internal/catalog"
	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/database/mock"
	"github.com/reefwatch/sharkmark/internal/geometry"
	"github.com/reefwatch/sharkmark/internal/ml"
)

func readyPhoto(id string, uploadedAt time.Time) database.Photo {
	return database.Photo{
		ID:               id,
		ObjectKey:        id + ".jpg",
		ContentType:      "image/jpeg",
		UploadedAt:       uploadedAt,
		ProcessingStatus: database.StatusReadyForValidation,
		SharkBBox:        &geometry.Rect{X: 0.1, Y: 0.1, W: 0.5, H: 0.5},
		ZoneBBox:         &geometry.Rect{X: 0.2, Y: 0.2, W: 0.4, H: 0.4},
		Orientation:      "face_left",
		AutoDetected:     true,
		Top5Candidates: []database.Candidate{
			{SharkID: "s1", DisplayName: "Luna", Score: 0.91},
		},
	}
}

func TestPhotosHandler_ValidationQueue(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	photos.AddPhoto(readyPhoto("p2", base.Add(time.Hour)))
	photos.AddPhoto(readyPhoto("p1", base))
	photos.AddPhoto(database.Photo{ID: "p3", ProcessingStatus: database.StatusProcessing, UploadedAt: base})

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/v1/photos/validation-queue", nil)
	recorder := httptest.NewRecorder()

	handler.ValidationQueue(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var queue []catalog.Photo
	parseJSONResponse(t, recorder, &queue)

	if len(queue) != 2 {
		t.Fatalf("expected 2 photos in queue, got %d", len(queue))
	}
	if queue[0].ID != "p1" || queue[1].ID != "p2" {
		t.Errorf("expected oldest-first order [p1 p2], got [%s %s]", queue[0].ID, queue[1].ID)
	}
	if len(queue[0].Top5Candidates) != 1 || queue[0].Top5Candidates[0].SharkID != "s1" {
		t.Errorf("unexpected candidates: %+v", queue[0].Top5Candidates)
	}
}

func TestPhotosHandler_ValidationQueue_RepositoryError(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.QueueError = errors.New("database down")

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/v1/photos/validation-queue", nil)
	recorder := httptest.NewRecorder()

	handler.ValidationQueue(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to load validation queue")
}

func TestPhotosHandler_QueueCount(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	base := time.Now().UTC()
	photos.AddPhoto(readyPhoto("p1", base))
	photos.AddPhoto(readyPhoto("p2", base))
	photos.AddPhoto(database.Photo{ID: "p3", ProcessingStatus: database.StatusValidated})

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/v1/photos/validation-queue/count", nil)
	recorder := httptest.NewRecorder()

	handler.QueueCount(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var count catalog.QueueCount
	parseJSONResponse(t, recorder, &count)
	if count.Count != 2 {
		t.Errorf("expected count 2, got %d", count.Count)
	}
}

func TestPhotosHandler_Get(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/v1/photos/p1", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var photo catalog.Photo
	parseJSONResponse(t, recorder, &photo)
	if photo.ID != "p1" {
		t.Errorf("expected photo p1, got %s", photo.ID)
	}
	if photo.ProcessingStatus != catalog.StatusReadyForValidation {
		t.Errorf("unexpected status %s", photo.ProcessingStatus)
	}
	if photo.SharkBBox == nil || photo.SharkBBox.W != 0.5 {
		t.Errorf("unexpected shark bbox: %+v", photo.SharkBBox)
	}
}

func TestPhotosHandler_Get_NotFound(t *testing.T) {
	handler := testPhotosHandler(mock.NewMockPhotoRepository(), mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/v1/photos/missing", nil)
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "Photo not found")
}

func TestPhotosHandler_Annotate(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photo := readyPhoto("p1", time.Now().UTC())
	photos.AddPhoto(photo)

	embeddings := mock.NewMockEmbeddingRepository()
	embeddings.CandidatesResult = []database.Candidate{
		{SharkID: "s7", DisplayName: "Hermione", Score: 0.88},
	}

	mlClient := &fakeML{EmbedResult: []float32{0.1, 0.2, 0.3}}
	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": []byte("image-bytes")}}

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), embeddings, mlClient, store)

	body := bytes.NewBufferString(`{
		"shark_bbox": {"x": 0.1, "y": 0.2, "w": 0.6, "h": 0.5},
		"zone_bbox": {"x": 0.3, "y": 0.1, "w": 0.2, "h": 0.2},
		"orientation": "face_right"
	}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/annotate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Annotate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response catalog.Photo
	parseJSONResponse(t, recorder, &response)
	if response.ProcessingStatus != catalog.StatusProcessing {
		t.Errorf("expected response status processing, got %s", response.ProcessingStatus)
	}
	if response.AutoDetected {
		t.Error("expected auto_detected false after manual annotation")
	}
	if len(response.Top5Candidates) != 0 {
		t.Errorf("expected cleared candidates in response, got %+v", response.Top5Candidates)
	}

	// The inline background task has already re-classified the photo.
	stored, err := photos.Get(req.Context(), "p1")
	if err != nil {
		t.Fatalf("failed to load photo: %v", err)
	}
	if stored.ProcessingStatus != database.StatusReadyForValidation {
		t.Errorf("expected stored status ready_for_validation, got %s", stored.ProcessingStatus)
	}
	if stored.SharkBBox.X != 0.1 || stored.ZoneBBox.X != 0.3 {
		t.Errorf("annotation boxes not persisted: %+v %+v", stored.SharkBBox, stored.ZoneBBox)
	}
	if stored.Orientation != "face_right" {
		t.Errorf("expected orientation face_right, got %s", stored.Orientation)
	}
	if len(stored.Top5Candidates) != 1 || stored.Top5Candidates[0].SharkID != "s7" {
		t.Errorf("unexpected candidates after classify: %+v", stored.Top5Candidates)
	}
	// Boxes came from the request, the detector must stay out of it.
	if mlClient.DetectCalls != 0 {
		t.Errorf("expected no detect calls, got %d", mlClient.DetectCalls)
	}
	if len(mlClient.EmbedCalls) != 1 {
		t.Fatalf("expected 1 embed call, got %d", len(mlClient.EmbedCalls))
	}
	if mlClient.EmbedCalls[0].Shark == nil || mlClient.EmbedCalls[0].Shark.W != 0.6 {
		t.Errorf("embed call missing annotated shark bbox: %+v", mlClient.EmbedCalls[0].Shark)
	}
}

func TestPhotosHandler_Annotate_ClassifyFailureParksPhoto(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	mlClient := &fakeML{EmbedError: errors.New("model unavailable")}
	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": []byte("image-bytes")}}

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), mlClient, store)

	body := bytes.NewBufferString(`{
		"shark_bbox": {"x": 0.1, "y": 0.2, "w": 0.6, "h": 0.5},
		"zone_bbox": {"x": 0.3, "y": 0.1, "w": 0.2, "h": 0.2},
		"orientation": "face_left"
	}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/annotate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Annotate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	stored, _ := photos.Get(req.Context(), "p1")
	if stored.ProcessingStatus != database.StatusError {
		t.Errorf("expected status error after classify failure, got %s", stored.ProcessingStatus)
	}
	if stored.Top5Candidates == nil || len(stored.Top5Candidates) != 0 {
		t.Errorf("expected empty candidate list, got %+v", stored.Top5Candidates)
	}
}

func TestPhotosHandler_Annotate_InvalidOrientation(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{
		"shark_bbox": {"x": 0, "y": 0, "w": 1, "h": 1},
		"zone_bbox": {"x": 0, "y": 0, "w": 1, "h": 1},
		"orientation": "upside_down"
	}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/annotate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Annotate(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestPhotosHandler_Annotate_InvalidJSON(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("POST", "/api/v1/photos/p1/annotate", bytes.NewBufferString(`{invalid}`))
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Annotate(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid request body")
}

func TestPhotosHandler_Validate_Confirm(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	sharks := mock.NewMockSharkRepository()
	sharks.AddShark(database.Shark{ID: "s1", DisplayName: "Luna", NameStatus: database.NameStatusConfirmed})

	handler := testPhotosHandler(photos, sharks, mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "confirm", "shark_id": "s1"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response catalog.Photo
	parseJSONResponse(t, recorder, &response)
	if response.SharkID != "s1" {
		t.Errorf("expected shark s1, got %q", response.SharkID)
	}
	if response.ProcessingStatus != catalog.StatusValidated {
		t.Errorf("expected status validated, got %s", response.ProcessingStatus)
	}

	stored, _ := photos.Get(req.Context(), "p1")
	if stored.ProcessingStatus != database.StatusValidated || stored.SharkID != "s1" {
		t.Errorf("photo not persisted as validated: %+v", stored)
	}
}

func TestPhotosHandler_Validate_NotInQueue(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photo := readyPhoto("p1", time.Now().UTC())
	photo.ProcessingStatus = database.StatusProcessing
	photos.AddPhoto(photo)

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "confirm", "shark_id": "s1"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "Photo is not in the validation queue")
}

func TestPhotosHandler_Validate_ConfirmRequiresSharkID(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	for _, action := range []string{"confirm", "select"} {
		body := bytes.NewBufferString(`{"action": "` + action + `"}`)
		req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
		req = requestWithChiParams(req, map[string]string{"id": "p1"})
		recorder := httptest.NewRecorder()

		handler.Validate(recorder, req)

		assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	}
}

func TestPhotosHandler_Validate_UnknownShark(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "select", "shark_id": "ghost"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "Shark not found")
}

func TestPhotosHandler_Validate_CreateNewShark(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	sharks := mock.NewMockSharkRepository()
	handler := testPhotosHandler(photos, sharks, mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "create", "shark_name": "Ginny"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	if len(sharks.CreateCalls) != 1 {
		t.Fatalf("expected 1 created shark, got %d", len(sharks.CreateCalls))
	}
	created := sharks.CreateCalls[0]
	if created.DisplayName != "Ginny" {
		t.Errorf("expected display name Ginny, got %s", created.DisplayName)
	}
	if created.NameStatus != database.NameStatusTemporary {
		t.Errorf("expected default name status temporary, got %s", created.NameStatus)
	}
	if created.ID == "" {
		t.Error("expected a generated shark id")
	}

	stored, _ := photos.Get(req.Context(), "p1")
	if stored.SharkID != created.ID {
		t.Errorf("photo linked to %q, want %q", stored.SharkID, created.ID)
	}
}

func TestPhotosHandler_Validate_CreateRequiresName(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "create"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "shark_name required for action 'create'")
}

func TestPhotosHandler_Validate_Unlink(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photo := readyPhoto("p1", time.Now().UTC())
	photo.SharkID = "s1"
	photos.AddPhoto(photo)

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "unlink"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	stored, _ := photos.Get(req.Context(), "p1")
	if stored.SharkID != "" {
		t.Errorf("expected unlinked photo, got shark %q", stored.SharkID)
	}
	if stored.ProcessingStatus != database.StatusValidated {
		t.Errorf("expected status validated, got %s", stored.ProcessingStatus)
	}
}

func TestPhotosHandler_Validate_UnknownAction(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "promote"}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "unknown action")
}

func TestPhotosHandler_Validate_SetAsProfilePhoto(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	sharks := mock.NewMockSharkRepository()
	sharks.AddShark(database.Shark{ID: "s1", DisplayName: "Luna"})

	embeddings := mock.NewMockEmbeddingRepository()
	mlClient := &fakeML{EmbedResult: []float32{0.5, 0.5}}
	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": []byte("image-bytes")}}

	handler := testPhotosHandler(photos, sharks, embeddings, mlClient, store)

	body := bytes.NewBufferString(`{"action": "confirm", "shark_id": "s1", "set_as_profile_photo": true}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	stored, _ := photos.Get(req.Context(), "p1")
	if !stored.IsProfilePhoto {
		t.Error("expected is_profile_photo true")
	}

	if len(embeddings.UpsertCalls) != 1 {
		t.Fatalf("expected 1 stored embedding, got %d", len(embeddings.UpsertCalls))
	}
	emb := embeddings.UpsertCalls[0]
	if emb.SharkID != "s1" || emb.PhotoID != "p1" {
		t.Errorf("embedding linked to %s/%s, want s1/p1", emb.SharkID, emb.PhotoID)
	}
	if emb.DisplayName != "Luna" {
		t.Errorf("expected display name Luna, got %s", emb.DisplayName)
	}
	if emb.Orientation != "face_left" {
		t.Errorf("expected orientation face_left, got %s", emb.Orientation)
	}
	if len(emb.Embedding) != 2 {
		t.Errorf("unexpected embedding: %v", emb.Embedding)
	}
}

func TestPhotosHandler_Validate_UpdateFailureSkipsEmbeddingPush(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))
	photos.UpdateError = errors.New("database down")

	sharks := mock.NewMockSharkRepository()
	sharks.AddShark(database.Shark{ID: "s1", DisplayName: "Luna"})

	embeddings := mock.NewMockEmbeddingRepository()
	mlClient := &fakeML{EmbedResult: []float32{0.5, 0.5}}
	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": []byte("image-bytes")}}

	handler := testPhotosHandler(photos, sharks, embeddings, mlClient, store)

	body := bytes.NewBufferString(`{"action": "confirm", "shark_id": "s1", "set_as_profile_photo": true}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)

	// A validation that never persisted must not leave an embedding
	// behind for candidate ranking.
	if len(embeddings.UpsertCalls) != 0 {
		t.Errorf("expected no stored embedding after failed validation, got %d", len(embeddings.UpsertCalls))
	}
	if len(mlClient.EmbedCalls) != 0 {
		t.Errorf("expected no embed calls after failed validation, got %d", len(mlClient.EmbedCalls))
	}
}

func TestPhotosHandler_Validate_UnlinkIgnoresProfileFlag(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	embeddings := mock.NewMockEmbeddingRepository()
	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), embeddings, &fakeML{}, &fakeStore{})

	body := bytes.NewBufferString(`{"action": "unlink", "set_as_profile_photo": true}`)
	req := httptest.NewRequest("POST", "/api/v1/photos/p1/validate", body)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Validate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	stored, _ := photos.Get(req.Context(), "p1")
	if stored.IsProfilePhoto {
		t.Error("unlinked photo must not become a profile photo")
	}
	if len(embeddings.UpsertCalls) != 0 {
		t.Errorf("expected no embedding push, got %d", len(embeddings.UpsertCalls))
	}
}

func TestPhotosHandler_Crop(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photo := readyPhoto("p1", time.Now().UTC())
	photo.ContentType = "image/png"
	photos.AddPhoto(photo)

	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": testImagePNG(t)}}
	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, store)

	req := httptest.NewRequest("GET", "/api/v1/photos/p1/crop", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Crop(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/jpeg")
	if recorder.Body.Len() == 0 {
		t.Error("expected rendered image bytes")
	}
}

func TestPhotosHandler_Crop_Zone(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photo := readyPhoto("p1", time.Now().UTC())
	photos.AddPhoto(photo)

	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": testImagePNG(t)}}
	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, store)

	req := httptest.NewRequest("GET", "/api/v1/photos/p1/crop?zone=true", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Crop(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/jpeg")
}

func TestPhotosHandler_Crop_Size(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photo := readyPhoto("p1", time.Now().UTC())
	photo.ContentType = "image/png"
	photos.AddPhoto(photo)

	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": testImagePNG(t)}}
	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, store)

	req := httptest.NewRequest("GET", "/api/v1/photos/p1/crop?size=4", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Crop(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/jpeg")

	img, err := jpeg.Decode(recorder.Body)
	if err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if img.Bounds().Dx() > 4 || img.Bounds().Dy() > 4 {
		t.Errorf("expected crop within 4x4, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPhotosHandler_Crop_InvalidSize(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": testImagePNG(t)}}
	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, store)

	for _, size := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest("GET", "/api/v1/photos/p1/crop?size="+size, nil)
		req = requestWithChiParams(req, map[string]string{"id": "p1"})
		recorder := httptest.NewRecorder()

		handler.Crop(recorder, req)

		assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
		assertJSONError(t, recorder, "size must be a positive integer")
	}
}

func TestPhotosHandler_Crop_Unannotated(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(database.Photo{ID: "p1", ObjectKey: "p1.jpg", ProcessingStatus: database.StatusUploaded})

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/v1/photos/p1/crop", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Crop(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "photo has no shark annotation")
}

func TestPhotosHandler_Crop_StoreFailure(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	store := &fakeStore{FetchError: errors.New("storage down")}
	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, store)

	req := httptest.NewRequest("GET", "/api/v1/photos/p1/crop", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Crop(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadGateway)
}

func TestPhotosHandler_Delete(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(readyPhoto("p1", time.Now().UTC()))

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("DELETE", "/api/v1/photos/p1", nil)
	req = requestWithChiParams(req, map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNoContent)

	if len(photos.DeleteCalls) != 1 || photos.DeleteCalls[0] != "p1" {
		t.Errorf("unexpected delete calls: %v", photos.DeleteCalls)
	}
}

func TestPhotosHandler_Delete_NotFound(t *testing.T) {
	handler := testPhotosHandler(mock.NewMockPhotoRepository(), mock.NewMockSharkRepository(), mock.NewMockEmbeddingRepository(), &fakeML{}, &fakeStore{})

	req := httptest.NewRequest("DELETE", "/api/v1/photos/missing", nil)
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestPhotosHandler_ClassifyAutoDetect(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(database.Photo{
		ID:               "p1",
		ObjectKey:        "p1.jpg",
		ContentType:      "image/jpeg",
		ProcessingStatus: database.StatusUploaded,
		Orientation:      "face_left",
	})

	embeddings := mock.NewMockEmbeddingRepository()
	embeddings.CandidatesResult = []database.Candidate{}

	mlClient := &fakeML{
		DetectResult: &ml.DetectResult{
			SharkBBox: &geometry.Rect{X: 0.1, Y: 0.1, W: 0.8, H: 0.6},
			ZoneBBox:  &geometry.Rect{X: 0.2, Y: 0.2, W: 0.3, H: 0.3},
		},
		EmbedResult: []float32{1, 0},
	}
	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": []byte("image-bytes")}}

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), embeddings, mlClient, store)
	handler.classify("p1")

	stored, err := photos.Get(t.Context(), "p1")
	if err != nil {
		t.Fatalf("failed to load photo: %v", err)
	}
	if stored.ProcessingStatus != database.StatusReadyForValidation {
		t.Errorf("expected ready_for_validation, got %s", stored.ProcessingStatus)
	}
	if !stored.AutoDetected {
		t.Error("expected auto_detected true for detector boxes")
	}
	if stored.SharkBBox == nil || stored.SharkBBox.W != 0.8 {
		t.Errorf("detector bbox not persisted: %+v", stored.SharkBBox)
	}
	if mlClient.DetectCalls != 1 {
		t.Errorf("expected 1 detect call, got %d", mlClient.DetectCalls)
	}
}

func TestPhotosHandler_ClassifyNoSubjectDetected(t *testing.T) {
	photos := mock.NewMockPhotoRepository()
	photos.AddPhoto(database.Photo{
		ID:               "p1",
		ObjectKey:        "p1.jpg",
		ContentType:      "image/jpeg",
		ProcessingStatus: database.StatusUploaded,
	})

	embeddings := mock.NewMockEmbeddingRepository()
	embeddings.CandidatesResult = []database.Candidate{}

	// Detector found nothing; the embedding falls back to the full frame.
	mlClient := &fakeML{EmbedResult: []float32{1, 0}}
	store := &fakeStore{Objects: map[string][]byte{"p1.jpg": []byte("image-bytes")}}

	handler := testPhotosHandler(photos, mock.NewMockSharkRepository(), embeddings, mlClient, store)
	handler.classify("p1")

	stored, _ := photos.Get(t.Context(), "p1")
	if stored.ProcessingStatus != database.StatusReadyForValidation {
		t.Errorf("expected ready_for_validation, got %s", stored.ProcessingStatus)
	}
	if stored.SharkBBox != nil {
		t.Errorf("expected no bbox, got %+v", stored.SharkBBox)
	}
	if len(mlClient.EmbedCalls) != 1 || mlClient.EmbedCalls[0].Shark != nil {
		t.Errorf("expected full-frame embed call, got %+v", mlClient.EmbedCalls)
	}
}
