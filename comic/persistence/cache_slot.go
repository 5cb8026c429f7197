package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/google/renameio/v2"
)

var _ domain.CacheSlot = (*FileCacheSlot)(nil)

// FileName is the fixed name of the cached comic. It does not vary per item.
const FileName = "daily_fingerpori.jpg"

// FileCacheSlot implements domain.CacheSlot on top of a single file.
type FileCacheSlot struct {
	path string
}

// NewFileCacheSlot creates a slot for FileName inside dir, creating dir if needed.
func NewFileCacheSlot(dir string) (*FileCacheSlot, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCacheSlot{
		path: filepath.Join(dir, FileName),
	}, nil
}

// Write replaces the cached image. The bytes go to a temporary file in the same directory
// which is synced and renamed over the slot, so readers see either the old or the new image.
func (s *FileCacheSlot) Write(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to cache an empty image")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache write aborted: %w", err)
	}

	if err := renameio.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}

func (s *FileCacheSlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNoImage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return data, nil
}

func (s *FileCacheSlot) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, domain.ErrNoImage
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat image file: %w", err)
	}

	return info.ModTime(), nil
}

func (s *FileCacheSlot) Path() string {
	return s.path
}
