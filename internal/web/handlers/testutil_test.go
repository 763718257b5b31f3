package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/database/mock"
	"github.com/reefwatch/sharkmark/internal/geometry"
	"github.com/reefwatch/sharkmark/internal/ml"
)

// fakeML is a test double for the ML collaborator.
type fakeML struct {
	DetectResult *ml.DetectResult
	DetectError  error
	EmbedResult  []float32
	EmbedError   error

	DetectCalls int
	EmbedCalls  []embedCall
}

type embedCall struct {
	Shark *geometry.Rect
	Zone  *geometry.Rect
}

func (f *fakeML) Detect(ctx context.Context, image []byte, contentType string) (*ml.DetectResult, error) {
	f.DetectCalls++
	if f.DetectError != nil {
		return nil, f.DetectError
	}
	if f.DetectResult != nil {
		return f.DetectResult, nil
	}
	return &ml.DetectResult{}, nil
}

func (f *fakeML) Embed(ctx context.Context, image []byte, contentType string, shark, zone *geometry.Rect) ([]float32, error) {
	f.EmbedCalls = append(f.EmbedCalls, embedCall{Shark: shark, Zone: zone})
	if f.EmbedError != nil {
		return nil, f.EmbedError
	}
	return f.EmbedResult, nil
}

// fakeStore is a test double for the photo object store.
type fakeStore struct {
	Objects    map[string][]byte
	FetchError error
}

func (f *fakeStore) Fetch(ctx context.Context, objectKey string) ([]byte, error) {
	if f.FetchError != nil {
		return nil, f.FetchError
	}
	data, ok := f.Objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %q not found", objectKey)
	}
	return data, nil
}

// testPhotosHandler wires a PhotosHandler with mocks. Background tasks
// run inline so tests can assert their effects directly.
func testPhotosHandler(photos *mock.MockPhotoRepository, sharks *mock.MockSharkRepository, embeddings *mock.MockEmbeddingRepository, mlClient *fakeML, store *fakeStore) *PhotosHandler {
	h := NewPhotosHandler(photos, sharks, embeddings, mlClient, store, database.DefaultScoreThreshold)
	h.spawn = func(task func()) { task() }
	return h
}

// testImagePNG encodes a small PNG for crop tests.
func testImagePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
