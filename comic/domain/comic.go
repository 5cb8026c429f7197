package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoImage is returned when no image has been cached yet.
var ErrNoImage = errors.New("no cached image")

// FetchResult is the outcome of a refresh cycle that committed a new image.
// A nil *FetchResult means the cycle changed nothing and the cached image is still authoritative.
type FetchResult struct {
	Image []byte
	// PublicationDate is kept exactly as the feed declared it.
	PublicationDate string
	ImageURL        string
	FetchedAt       time.Time
}

// PublishedAt parses PublicationDate into a time. The second return value is false when
// the date is missing or in a format we don't recognise.
func (r *FetchResult) PublishedAt() (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	return ParsePublicationDate(r.PublicationDate)
}

// Feeds in the wild rarely stick to one format, so try the common ones in order.
var publicationDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02",
}

// ParsePublicationDate parses a feed publication date.
func ParsePublicationDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range publicationDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CacheSlot is the single persisted file holding the most recently downloaded image.
type CacheSlot interface {
	// Write atomically replaces the slot contents. On error the previous contents are untouched.
	Write(ctx context.Context, data []byte) error

	// Read returns the current contents, or ErrNoImage if nothing was ever written.
	Read(ctx context.Context) ([]byte, error)

	// ModTime returns when the slot was last written, or ErrNoImage.
	ModTime() (time.Time, error)

	Path() string
}

// ImageProvider is what the presentation layer needs from the comic image.
type ImageProvider interface {
	ImageBytes(ctx context.Context) ([]byte, error)
	State() (string, bool)
}
