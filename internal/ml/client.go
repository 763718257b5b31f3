// Package ml is the HTTP client for the embedding service. The service
// accepts raw image bytes and returns detections or embedding vectors;
// all ranking happens on our side.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reefwatch/sharkmark/internal/geometry"
)

// Client talks to the embedding service.
type Client struct {
	parsedURL  *url.URL
	dim        int
	httpClient *http.Client
}

// DetectResult is the detector's bounding box proposal. Both boxes are
// nil when no clear subject was found.
type DetectResult struct {
	SharkBBox *geometry.Rect `json:"shark_bbox"`
	ZoneBBox  *geometry.Rect `json:"zone_bbox"`
}

// EmbedResult carries an extracted embedding vector.
type EmbedResult struct {
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
}

type healthResult struct {
	Status string `json:"status"`
}

// NewClient creates a client for the embedding service at rawURL. A
// positive dim rejects embeddings of any other length; vectors of the
// wrong size would poison the stored-embedding index. Zero disables
// the check.
func NewClient(rawURL string, dim int) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ML service URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ML service URL %q: missing scheme or host", rawURL)
	}
	return &Client{
		parsedURL: parsed,
		dim:       dim,
		// Embedding extraction on large images is slow.
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Detect sends raw image bytes and returns auto-detected shark and zone
// bounding boxes, both normalized. ZoneBBox is relative to SharkBBox.
func (c *Client) Detect(ctx context.Context, image []byte, contentType string) (*DetectResult, error) {
	result, err := doImagePost[DetectResult](ctx, c, "detect", nil, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting shark: %w", err)
	}
	return result, nil
}

// Embed sends raw image bytes and returns the embedding of the
// annotated zone. The shark and zone boxes select the region; when
// either is nil the service falls back to its own crop heuristic.
func (c *Client) Embed(ctx context.Context, image []byte, contentType string, shark, zone *geometry.Rect) ([]float32, error) {
	query := url.Values{}
	addRectParams(query, "shark", shark)
	addRectParams(query, "zone", zone)

	result, err := doImagePost[EmbedResult](ctx, c, "embed", query, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("extracting embedding: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	if c.dim > 0 && len(result.Embedding) != c.dim {
		return nil, fmt.Errorf("embedding service returned %d dimensions, expected %d", len(result.Embedding), c.dim)
	}
	return result.Embedding, nil
}

// Healthy reports whether the embedding service answers its health
// endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	endpoint := c.parsedURL.JoinPath("health").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var health healthResult
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK && health.Status == "ok"
}

func addRectParams(query url.Values, prefix string, r *geometry.Rect) {
	if r == nil {
		return
	}
	query.Set(prefix+"_x", formatCoord(r.X))
	query.Set(prefix+"_y", formatCoord(r.Y))
	query.Set(prefix+"_w", formatCoord(r.W))
	query.Set(prefix+"_h", formatCoord(r.H))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// doImagePost posts raw image bytes with optional query params and
// unmarshals the JSON response.
func doImagePost[T any](ctx context.Context, c *Client, path string, query url.Values, image []byte, contentType string) (*T, error) {
	endpoint := c.parsedURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}
