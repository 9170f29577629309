package service

import (
	"context"
	"fmt"
	"io"

	"github.com/glowsenior/HIPAA-Contract-Site/config"
)

// BlobStorage abstracts where uploaded file bytes live. Implementations
// must make Remove idempotent and must surface a missing blob from Open
// as a storage error, since a metadata record can outlive its file.
type BlobStorage interface {
	// Save writes size bytes from r under name.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Open returns a reader over the blob and its size.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	// Remove deletes the blob. Removing an absent blob is not an error.
	Remove(ctx context.Context, name string) error
	// Exists reports whether the blob is present.
	Exists(ctx context.Context, name string) (bool, error)
}

// NewBlobStorage builds the configured storage backend.
func NewBlobStorage(cfg *config.Config) (BlobStorage, error) {
	switch cfg.Storage.Backend {
	case "disk", "":
		return NewDiskStorage(cfg.Upload.Dir), nil
	case "minio":
		return NewMinioStorage(&cfg.Storage.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
