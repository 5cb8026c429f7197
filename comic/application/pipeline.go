package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// FeedURL is the only feed this service reads.
	FeedURL = "https://www.hs.fi/rss/fingerpori.xml"

	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultBackoffBase    = time.Second
)

// ErrEmptyImage means the image URL answered 200 with no body.
var ErrEmptyImage = errors.New("image download was empty")

// RefreshConfig holds the network policy of a refresh cycle.
type RefreshConfig struct {
	FeedURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
}

func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		FeedURL:        FeedURL,
		RequestTimeout: defaultRequestTimeout,
		MaxRetries:     defaultMaxRetries,
		BackoffBase:    defaultBackoffBase,
	}
}

// RefreshPipeline runs one refresh cycle: fetch the feed, find the newest image,
// download it and commit it to the cache slot.
type RefreshPipeline struct {
	fetcher  domain.Fetcher
	resolver *FeedResolver
	slot     domain.CacheSlot
	cfg      RefreshConfig

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewRefreshPipeline(fetcher domain.Fetcher, slot domain.CacheSlot, cfg RefreshConfig) *RefreshPipeline {
	return &RefreshPipeline{
		fetcher:  fetcher,
		resolver: NewFeedResolver(),
		slot:     slot,
		cfg:      cfg,
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// Execute runs one cycle and returns the newly committed image, or nil when nothing changed.
// It never returns an error or panics: every failure is logged and the cached image is left as it was.
// Callers must not run Execute concurrently on the same pipeline.
func (p *RefreshPipeline) Execute(ctx context.Context) (result *domain.FetchResult) {
	logger := log.With().Str("cycle", uuid.NewString()).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Refresh cycle panicked")
			result = nil
		}
	}()

	result, err := p.run(ctx, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Refresh cycle made no update")
		return nil
	}

	logger.Info().
		Str("imageURL", result.ImageURL).
		Str("publicationDate", result.PublicationDate).
		Int("bytes", len(result.Image)).
		Msg("Downloaded new comic")
	return result
}

func (p *RefreshPipeline) run(ctx context.Context, logger zerolog.Logger) (*domain.FetchResult, error) {
	policy := RetryPolicy{
		MaxAttempts: p.cfg.MaxRetries,
		Backoff:     ExponentialBackoff(p.cfg.BackoffBase),
		Sleep:       p.sleep,
	}

	logger.Debug().Str("url", p.cfg.FeedURL).Msg("Fetching feed")
	feed, err := Retry(ctx, policy, "feed", p.download(p.cfg.FeedURL))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed after %d attempts: %w", policy.MaxAttempts, err)
	}

	entry, err := p.resolver.Resolve(feed)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve feed: %w", err)
	}

	imageURL, err := resolveReference(p.cfg.FeedURL, entry.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", entry.ImageURL, err)
	}

	logger.Debug().Str("url", imageURL).Msg("Fetching image")
	image, err := Retry(ctx, policy, "image", p.download(imageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", policy.MaxAttempts, err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%s: %w", imageURL, ErrEmptyImage)
	}

	if err := p.slot.Write(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to commit image to %s: %w", p.slot.Path(), err)
	}

	return &domain.FetchResult{
		Image:           image,
		PublicationDate: entry.PublicationDate,
		ImageURL:        imageURL,
		FetchedAt:       p.now(),
	}, nil
}

// download returns a single bounded attempt at fetching target.
func (p *RefreshPipeline) download(target string) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		if p.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
			defer cancel()
		}
		return p.fetcher.Fetch(ctx, target)
	}
}

// resolveReference makes ref absolute relative to base, so feeds may use relative image paths.
func resolveReference(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if refURL.IsAbs() {
		return refURL.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
