package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/salonbook/apiserver/config"
	"google.golang.org/api/option"
)

// GCSBucket is a Backend for a Google Cloud Storage bucket.
type GCSBucket struct {
	client  *storage.Client
	handle  *storage.BucketHandle
	name    string
	project string
}

func NewGCSBucket(ctx context.Context, cfg config.GCSConfig) (*GCSBucket, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, errors.New("gcs: GCS_BUCKET is not set")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSBucket{client: client, handle: client.Bucket(name), name: name, project: cfg.ProjectID}, nil
}

// EnsureBucket creates a missing bucket. Creation needs GCS_PROJECT_ID.
func (g *GCSBucket) EnsureBucket(ctx context.Context) error {
	_, err := g.handle.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return err
	case strings.TrimSpace(g.project) == "":
		return fmt.Errorf("gcs: bucket %s does not exist and GCS_PROJECT_ID is not set", g.name)
	}
	return g.handle.Create(ctx, g.project, nil)
}

// Put streams r into the object. The size hint is unused.
func (g *GCSBucket) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.ContentDisposition = "attachment"

	_, copyErr := io.Copy(w, r)
	closeErr := w.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return fmt.Errorf("gcs put %s: %w", key, err)
	}
	return nil
}

func (g *GCSBucket) Bucket() string { return g.name }
