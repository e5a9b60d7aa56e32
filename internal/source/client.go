package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout = 15 * time.Second
	maxBodySize    = 8 << 20 // 8 MB
	userAgent      = "github.com/theirongolddev/finburn/1.0"
)

var (
	// ErrUnauthorized indicates the dashboard rejected the session cookie.
	ErrUnauthorized = errors.New("source: unauthorized (cookie missing or expired)")
	// ErrRateLimited indicates the dashboard throttled the request.
	ErrRateLimited = errors.New("source: rate limited")
	// ErrUnexpectedStatus wraps any other non-2xx response.
	ErrUnexpectedStatus = errors.New("source: unexpected status")
	// ErrTooLarge indicates the page exceeded the body limit.
	ErrTooLarge = errors.New("source: page too large")
)

// Client fetches dashboard pages over HTTP.
type Client struct {
	http    *http.Client
	cookie  string
	timeout time.Duration
}

// NewClient returns a client. cookie, when set, is sent verbatim in the
// Cookie header for dashboards behind a login.
func NewClient(cookie string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		http:    &http.Client{},
		cookie:  strings.TrimSpace(cookie),
		timeout: timeout,
	}
}

// Get fetches url and returns the body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	//nolint:gosec // URL is user configuration
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("source: reading response: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, ErrTooLarge
	}
	return body, nil
}
