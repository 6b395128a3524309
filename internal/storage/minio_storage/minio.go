package minio_storage

import (
	"EduHub/internal/config"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	client  *minio.Client
	buckets map[string]config.BucketConfig
}

// NewMinioStorage connects to the object store and makes sure every
// configured bucket exists.
func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool, buckets map[string]config.BucketConfig) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	for _, bc := range buckets {
		exists, err := client.BucketExists(ctx, bc.Name)
		if err != nil {
			return nil, fmt.Errorf("error checking bucket %s: %w", bc.Name, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bc.Name, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("error creating bucket %s: %w", bc.Name, err)
			}
		}
	}

	return &MinioStorage{client: client, buckets: buckets}, nil
}

func (m *MinioStorage) bucket(name string) (bucket, error) {
	bc, ok := m.buckets[name]
	if !ok || bc.Name == "" {
		return bucket{}, fmt.Errorf("bucket %q is not configured", name)
	}
	ttl := bc.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return bucket{client: m.client, name: bc.Name, presignedTTL: ttl}, nil
}

type bucket struct {
	client       *minio.Client
	name         string
	presignedTTL time.Duration
}

func (b bucket) put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(objectKey))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}
	_, err := b.client.PutObject(ctx, b.name, objectKey, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (b bucket) presign(ctx context.Context, objectKey string, downloadName string) (string, error) {
	reqParams := make(url.Values)
	if downloadName != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	u, err := b.client.PresignedGetObject(ctx, b.name, objectKey, b.presignedTTL, reqParams)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (b bucket) remove(ctx context.Context, objectKey string) error {
	return b.client.RemoveObject(ctx, b.name, objectKey, minio.RemoveObjectOptions{})
}

func extension(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}
	return ext
}
