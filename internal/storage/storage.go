package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/salonbook/apiserver/config"
)

// Backend is implemented by MinIO and GCS.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// Storage writes export files under a bucket.
type Storage struct {
	backend Backend
}

func New(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// NewFromConfig connects to the configured backend and makes sure its bucket
// exists. It returns nil when exports are disabled.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		backend, err = NewMinioBucket(cfg.Minio)
	case "gcs":
		backend, err = NewGCSBucket(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return New(backend), nil
}

// Put uploads an object. Keys are cleaned and may not escape the bucket root.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return s.backend.Put(ctx, strings.TrimPrefix(cleaned, "/"), r, size, contentType)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
