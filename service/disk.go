package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
)

// DiskStorage keeps blobs as plain files under a single upload directory,
// created on demand.
type DiskStorage struct {
	dir string
}

func NewDiskStorage(dir string) *DiskStorage {
	return &DiskStorage{dir: dir}
}

func (s *DiskStorage) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *DiskStorage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.Create(s.path(name))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(s.path(name)) // do not leave a partial file behind
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Close()
}

func (s *DiskStorage) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, apperr.Storage("File not found on server")
		}
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func (s *DiskStorage) Remove(ctx context.Context, name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
