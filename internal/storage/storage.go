// Package storage fetches photo objects from the object store over
// HTTP.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Store fetches stored photo bytes by object key.
type Store interface {
	Fetch(ctx context.Context, objectKey string) ([]byte, error)
}

// HTTPStore fetches objects from an HTTP object store (minio, S3
// gateway, or a plain file server).
type HTTPStore struct {
	parsedURL  *url.URL
	httpClient *http.Client
}

// NewHTTPStore creates a store reading from the given base URL.
func NewHTTPStore(rawURL string) (*HTTPStore, error) {
	parsed, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid storage URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid storage URL %q: missing scheme or host", rawURL)
	}
	return &HTTPStore{
		parsedURL:  parsed,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Fetch downloads the object at the given key.
func (s *HTTPStore) Fetch(ctx context.Context, objectKey string) ([]byte, error) {
	endpoint := s.parsedURL.JoinPath(objectKey).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch object %s: %w", objectKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching object %s failed with status %d", objectKey, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", objectKey, err)
	}
	return data, nil
}

var _ Store = (*HTTPStore)(nil)
