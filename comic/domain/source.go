package domain

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher downloads a resource over the network.
// This allows the pipeline to be decoupled from a specific HTTP client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// NetworkError describes a failed download: a transport failure, a timeout,
// a truncated body or a non-200 response.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
