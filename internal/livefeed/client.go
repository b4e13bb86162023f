// Package livefeed provides a client for the marketplace ranking feeds.
//
// Each bucket (most-viewed, best-rated, promotions, recent) is one GET
// returning a JSON array of product records.
package livefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
)

const defaultBaseURL = "http://localhost:8000/api"

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets the API base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// Client fetches live-feed buckets from the marketplace API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

// NewClient creates a new live-feed client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned when a bucket endpoint answers with a non-2xx status.
type APIError struct {
	Bucket     catalog.Bucket
	StatusCode int
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Sprintf("catalog API authentication failed for %s feed - check the API credentials", e.Bucket)
	case http.StatusForbidden:
		return fmt.Sprintf("catalog API access denied for %s feed", e.Bucket)
	case http.StatusNotFound:
		return fmt.Sprintf("catalog API has no %s feed (status 404)", e.Bucket)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("catalog API rate limit exceeded for %s feed - please try again later", e.Bucket)
	case http.StatusServiceUnavailable:
		return fmt.Sprintf("catalog API temporarily unavailable for %s feed", e.Bucket)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Sprintf("catalog API server error for %s feed (status %d)", e.Bucket, e.StatusCode)
	default:
		return fmt.Sprintf("catalog API error for %s feed (status %d)", e.Bucket, e.StatusCode)
	}
}

// FetchBucket retrieves up to limit records of one bucket. A limit of zero
// or less leaves the size to the server. Elements that fail to decode are
// returned with DecodeErr set so the caller can drop them one by one.
func (c *Client) FetchBucket(ctx context.Context, bucket catalog.Bucket, limit int) ([]catalog.LiveRecord, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, bucket)
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}

	body, err := c.doRequest(ctx, bucket, url)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s feed response: %w", bucket, err)
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, bucket catalog.Bucket, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog API unreachable for %s feed: %w", bucket, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s feed response: %w", bucket, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Bucket: bucket, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// paginatedResponse is the envelope some API versions wrap the array in.
type paginatedResponse struct {
	Results []json.RawMessage `json:"results"`
}

func decodeRecords(body []byte) ([]catalog.LiveRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []catalog.LiveRecord{}, nil
	}

	var raw []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
	case '{':
		var page paginatedResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, err
		}
		raw = page.Results
	default:
		return nil, errors.New("expected a JSON array of products")
	}

	records := make([]catalog.LiveRecord, 0, len(raw))
	for i, elem := range raw {
		var rec catalog.LiveRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			rec = catalog.LiveRecord{DecodeErr: fmt.Errorf("record %d: %w", i, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}
