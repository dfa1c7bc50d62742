package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver keeps a copy of every generated report.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type MinioArchive struct {
	client    *minio.Client
	bucket    string
	linkValid time.Duration
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioArchive connects and creates the bucket when it does not exist.
func NewMinioArchive(ctx context.Context, cfg MinioConfig) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioArchive{client: client, bucket: cfg.Bucket, linkValid: 24 * time.Hour}, nil
}

// Put uploads the object and returns a presigned GET URL for it.
func (a *MinioArchive) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if _, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	link, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.linkValid, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return link.String(), nil
}

func archiveKey(recordID string, at time.Time, format Format) string {
	return fmt.Sprintf("reports/%s/%s.%s", recordID, at.UTC().Format("20060102T150405Z"), format)
}
