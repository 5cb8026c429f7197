package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.ImageProvider = (*ComicImage)(nil)

// EntityID identifies the comic image to the presentation layer.
const EntityID = "image.comic_fingerpori"

// ComicImage serves the cached comic and its publication date.
type ComicImage struct {
	slot        domain.CacheSlot
	coordinator *Coordinator

	mu          sync.RWMutex
	lastUpdated time.Time
}

// NewComicImage creates the image provider and keeps its update time in step with the coordinator.
func NewComicImage(slot domain.CacheSlot, coordinator *Coordinator) *ComicImage {
	img := &ComicImage{
		slot:        slot,
		coordinator: coordinator,
	}

	if modTime, err := slot.ModTime(); err == nil {
		img.lastUpdated = modTime
	} else if !errors.Is(err, domain.ErrNoImage) {
		log.Warn().Err(err).Str("path", slot.Path()).Msg("Failed to stat cached comic")
	}

	coordinator.Subscribe(img.onRefresh)
	return img
}

func (i *ComicImage) onRefresh(result *domain.FetchResult) {
	if result == nil {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.lastUpdated = result.FetchedAt
}

func (i *ComicImage) EntityID() string {
	return EntityID
}

// ImageBytes returns the cached image, or domain.ErrNoImage if nothing has been downloaded yet.
func (i *ComicImage) ImageBytes(ctx context.Context) ([]byte, error) {
	data, err := i.slot.Read(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoImage) {
		log.Error().Err(err).Str("path", i.slot.Path()).Msg("Failed to read cached comic")
	}
	return data, err
}

// State is the publication date of the latest comic as YYYY-MM-DD, or the raw feed value if it
// can't be parsed. It is false until a cycle has downloaded an image.
func (i *ComicImage) State() (string, bool) {
	latest := i.coordinator.Latest()
	if latest == nil || latest.PublicationDate == "" {
		return "", false
	}

	if published, ok := latest.PublishedAt(); ok {
		return published.Format(time.DateOnly), true
	}
	return latest.PublicationDate, true
}

// LastUpdated is when the cached image was last replaced.
func (i *ComicImage) LastUpdated() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastUpdated
}

// Latest exposes the coordinator's latest result for callers that need the raw fields.
func (i *ComicImage) Latest() *domain.FetchResult {
	return i.coordinator.Latest()
}
