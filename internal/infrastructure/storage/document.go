// Package storage keeps carrier documents (labels, manifests) in object
// storage and hands out time-limited download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xborder/backend/internal/infrastructure/config"
)

// ErrKeyRequired is returned when an operation is called without a storage key
var ErrKeyRequired = errors.New("storage: storage key is required")

// DocumentStorage stores generated documents and signs download links
type DocumentStorage interface {
	// Upload stores data under key, replacing any previous content
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// GenerateDownloadURL signs a download link valid for expiresIn (0 uses the default)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	// ObjectExists reports whether key holds a document
	ObjectExists(ctx context.Context, key string) (bool, error)
	// DeleteObject removes key
	DeleteObject(ctx context.Context, key string) error
}

var (
	_ DocumentStorage = (*S3DocumentStorage)(nil)
	_ DocumentStorage = (*MemoryDocumentStorage)(nil)
)

// Open builds the storage selected by cfg.Type. The S3 bucket is created
// when missing.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (DocumentStorage, error) {
	switch cfg.Type {
	case "s3":
		s, err := NewS3DocumentStorage(&cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "", config.BackendMemory:
		logger.Warn("Using in-memory document storage; labels and manifests are lost on restart")
		return NewMemoryDocumentStorage(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("storage: unknown storage type %q", cfg.Type)
	}
}
