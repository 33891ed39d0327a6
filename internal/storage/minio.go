package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/salonbook/apiserver/config"
)

// MinioBucket is a Backend for MinIO or any other S3 compatible server.
type MinioBucket struct {
	s3   *minio.Client
	name string
}

func NewMinioBucket(cfg config.MinioConfig) (*MinioBucket, error) {
	if missing := missingMinioSettings(cfg); len(missing) > 0 {
		return nil, fmt.Errorf("minio: missing %s", strings.Join(missing, ", "))
	}

	s3, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioBucket{s3: s3, name: cfg.Bucket}, nil
}

func missingMinioSettings(cfg config.MinioConfig) []string {
	var missing []string
	for _, s := range []struct{ env, value string }{
		{"MINIO_ENDPOINT", cfg.Endpoint},
		{"MINIO_ACCESS_KEY", cfg.AccessKey},
		{"MINIO_SECRET_KEY", cfg.SecretKey},
		{"MINIO_BUCKET", cfg.Bucket},
	} {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.env)
		}
	}
	return missing
}

func (m *MinioBucket) EnsureBucket(ctx context.Context) error {
	ok, err := m.s3.BucketExists(ctx, m.name)
	if err != nil || ok {
		return err
	}
	return m.s3.MakeBucket(ctx, m.name, minio.MakeBucketOptions{})
}

// Put streams r as an attachment. size may be -1 when unknown.
func (m *MinioBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType, ContentDisposition: "attachment"}
	if _, err := m.s3.PutObject(ctx, m.name, key, r, size, opts); err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	return nil
}

func (m *MinioBucket) Bucket() string { return m.name }
