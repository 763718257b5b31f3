// Package catalog is the HTTP client for the sharkmark API. The
// annotation and validation controllers talk to the backend exclusively
// through this client.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a sharkmark API server.
type Client struct {
	parsedURL  *url.URL
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the API at rawURL. The token is
// optional; when set it is sent as a bearer token on every request.
func NewClient(rawURL, token string) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: missing scheme or host", rawURL)
	}
	return &Client{
		parsedURL:  parsed.JoinPath("api", "v1"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// resolveURL builds a full URL from the base API URL and path segments.
// A query string on the last segment is split off so JoinPath only sees
// the path portion.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// readErrorBody reads the response body for error messages. Returns an
// empty string if reading fails (we are already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

// doGetJSON performs a GET request and unmarshals the JSON response.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodGet, endpoint, nil, http.StatusOK)
}

// doPostJSON performs a POST request with a JSON body and unmarshals
// the JSON response.
func doPostJSON[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	return doRequestJSON[T](ctx, c, http.MethodPost, endpoint, requestBody, http.StatusOK, http.StatusCreated)
}

// doRequestJSON performs an HTTP request with an optional JSON body. A
// response status outside expectedStatuses is returned as an error with
// the server's message attached.
func doRequestJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	expected := false
	for _, status := range expectedStatuses {
		if resp.StatusCode == status {
			expected = true
			break
		}
	}
	if !expected {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// ValidationQueue returns the ordered set of photos awaiting a
// resolution action, oldest upload first.
func (c *Client) ValidationQueue(ctx context.Context) ([]Photo, error) {
	photos, err := doGetJSON[[]Photo](ctx, c, "photos/validation-queue")
	if err != nil {
		return nil, fmt.Errorf("fetching validation queue: %w", err)
	}
	return *photos, nil
}

// ValidationQueueCount returns the number of photos in the queue.
func (c *Client) ValidationQueueCount(ctx context.Context) (int, error) {
	count, err := doGetJSON[QueueCount](ctx, c, "photos/validation-queue/count")
	if err != nil {
		return 0, fmt.Errorf("fetching validation queue count: %w", err)
	}
	return count.Count, nil
}

// Photo fetches a single photo by id.
func (c *Client) Photo(ctx context.Context, photoID string) (*Photo, error) {
	photo, err := doGetJSON[Photo](ctx, c, "photos/"+photoID)
	if err != nil {
		return nil, fmt.Errorf("fetching photo %s: %w", photoID, err)
	}
	return photo, nil
}

// Annotate persists a user-drawn annotation and returns the updated
// photo. The server clears auto_detected and re-runs classification.
func (c *Client) Annotate(ctx context.Context, photoID string, req AnnotateRequest) (*Photo, error) {
	photo, err := doPostJSON[Photo](ctx, c, "photos/"+photoID+"/annotate", req)
	if err != nil {
		return nil, fmt.Errorf("annotating photo %s: %w", photoID, err)
	}
	return photo, nil
}

// Validate applies a resolution action to a queued photo and returns
// the updated photo.
func (c *Client) Validate(ctx context.Context, photoID string, req ValidateRequest) (*Photo, error) {
	photo, err := doPostJSON[Photo](ctx, c, "photos/"+photoID+"/validate", req)
	if err != nil {
		return nil, fmt.Errorf("validating photo %s: %w", photoID, err)
	}
	return photo, nil
}

// Sharks lists the identity catalog, optionally filtered by a
// case-insensitive substring of the display name.
func (c *Client) Sharks(ctx context.Context, query string) ([]Shark, error) {
	endpoint := "sharks"
	if query != "" {
		endpoint += "?q=" + url.QueryEscape(query)
	}
	sharks, err := doGetJSON[[]Shark](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching shark catalog: %w", err)
	}
	return *sharks, nil
}

// CreateShark creates a new identity in the catalog.
func (c *Client) CreateShark(ctx context.Context, req CreateSharkRequest) (*Shark, error) {
	shark, err := doPostJSON[Shark](ctx, c, "sharks", req)
	if err != nil {
		return nil, fmt.Errorf("creating shark: %w", err)
	}
	return shark, nil
}

// SuggestName asks the server for a name suggestion for a new shark.
// Best-effort: the server may return an empty string.
func (c *Client) SuggestName(ctx context.Context) (string, error) {
	name, err := doPostJSON[suggestedName](ctx, c, "sharks/suggest-name", nil)
	if err != nil {
		return "", fmt.Errorf("fetching name suggestion: %w", err)
	}
	return name.Name, nil
}
