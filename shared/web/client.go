package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
)

var _ domain.Fetcher = (*Client)(nil)

// UserAgent is sent with every request. Some comic hosts reject the default Go client.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodySize caps a single download.
const maxBodySize = 32 << 20

// Client is an implementation of domain.Fetcher that uses net/http.
type Client struct {
	client *http.Client
}

// NewClient creates a new Client whose requests give up after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads url and returns the complete body.
// Only a 200 response with a fully read body counts as success; everything else is a *domain.NetworkError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("web: building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, image/*, */*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, handleTransportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused by the next attempt.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &domain.NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, handleTransportError(url, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("web: %s exceeds %d bytes", url, maxBodySize)
	}
	if resp.ContentLength > 0 && int64(len(body)) != resp.ContentLength {
		return nil, &domain.NetworkError{
			URL: url,
			Err: fmt.Errorf("short body: got %d of %d bytes: %w", len(body), resp.ContentLength, io.ErrUnexpectedEOF),
		}
	}

	return body, nil
}

// handleTransportError turns a client error into a *domain.NetworkError, keeping
// the caller's own cancellation distinguishable from a request timeout.
func handleTransportError(url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("web: fetching %s: %w", url, err)
	}
	return &domain.NetworkError{URL: url, Err: err}
}
