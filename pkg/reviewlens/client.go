// Package reviewlens provides a client SDK for a running ReviewLens server.
//
// Example usage:
//
//	client := reviewlens.NewClient("http://localhost:8080",
//	    reviewlens.WithTimeout(5*time.Minute),
//	)
//
//	result, err := client.Scrape(ctx, "https://example.com/product/reviews")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range result.Reviews {
//	    fmt.Println(*r.Title, r.Rating)
//	}
package reviewlens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/types"
)

// Result is the outcome of a scrape session.
type Result = types.ScrapeResult

// Review is one normalized review record.
type Review = types.NormalizedReview

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Kind       string `json:"error_kind"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reviewlens: %s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// Client talks to a ReviewLens HTTP server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Scrapes are synchronous on the
// server side, so this must cover a whole session.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scrape runs a scrape session for the target URL and returns the result.
// Server-side failures are returned as *APIError.
func (c *Client) Scrape(ctx context.Context, target string) (*Result, error) {
	endpoint := c.baseURL + "/reviews?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reviewlens: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Kind = "internal_error"
			apiErr.Message = resp.Status
		}
		return nil, apiErr
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("reviewlens: decode response: %w", err)
	}
	return &result, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reviewlens: health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reviewlens: health check returned %s", resp.Status)
	}
	return nil
}
