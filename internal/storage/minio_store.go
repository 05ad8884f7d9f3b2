// Package storage archives alert snapshots to S3-compatible object
// storage so dispatched alerts keep their evidence frame even after
// local capture directories are rotated.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore uploads alert frames to a MinIO bucket.
type SnapshotStore struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// Config holds object-storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewSnapshotStore connects to the endpoint and ensures the bucket
// exists.
func NewSnapshotStore(cfg Config) (*SnapshotStore, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials not configured")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := cli.BucketExists(ctx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("failed to create or verify bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &SnapshotStore{client: cli, bucket: cfg.Bucket, useSSL: cfg.UseSSL}, nil
}

// SaveAlertSnapshot uploads the frame that triggered a dispatched
// alert, keyed by date and frame name. Returns the object URL.
func (s *SnapshotStore) SaveAlertSnapshot(ctx context.Context, frameName string, data []byte) (string, error) {
	key := fmt.Sprintf("alerts/%s/%s", time.Now().Format("2006-01-02"), frameName)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key), nil
}
