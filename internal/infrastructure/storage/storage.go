package storage

import (
	"context"
	"fmt"

	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend names accepted in configuration
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// New returns the file storage selected by cfg.Backend. For S3 the bucket is
// created when missing.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (appvalidation.FileStorage, error) {
	switch cfg.Backend {
	case BackendFilesystem, "":
		return NewFilesystemStorage(cfg.MediaRoot, WithFilesystemLogger(logger))
	case BackendS3:
		s, err := NewS3FileStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
