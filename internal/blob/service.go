// Package blob stores claim photos in S3-compatible object storage.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Service wraps a MinIO client. A nil Service (unconfigured endpoint)
// disables photo upload; claims can still be filed without one.
type Service struct {
	client *minio.Client
	bucket string
}

func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Service{client: client, bucket: cfg.Bucket}, nil
}

func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Put stores an object and returns its name for later retrieval.
func (s *Service) Put(ctx context.Context, objectName string, data []byte, contentType string) error {
	if !s.Enabled() {
		return fmt.Errorf("blob storage not configured")
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", objectName, err)
	}
	return nil
}

// PresignedURL returns a time-limited download link for an object.
func (s *Service) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("blob storage not configured")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", objectName, err)
	}
	return u.String(), nil
}
