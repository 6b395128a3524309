package minio_storage

import (
	"EduHub/internal/config"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ResourceStorage keeps files attached to course sections.
type ResourceStorage struct {
	bucket bucket
}

func NewResourceStorage(storage *MinioStorage) (*ResourceStorage, error) {
	b, err := storage.bucket(config.BucketSectionResources)
	if err != nil {
		return nil, err
	}
	return &ResourceStorage{bucket: b}, nil
}

func (s *ResourceStorage) UploadFile(
	ctx context.Context,
	sectionID, resourceID uuid.UUID,
	filename string,
	reader io.Reader,
	size int64,
	contentType string,
) (objectKey string, err error) {
	objectKey = fmt.Sprintf("sections/%s/%s%s", sectionID, resourceID, extension(filename))
	if err = s.bucket.put(ctx, objectKey, reader, size, contentType); err != nil {
		return "", err
	}
	return objectKey, nil
}

// FileURL presigns a download link that saves under the original file name.
func (s *ResourceStorage) FileURL(ctx context.Context, objectKey, fileName string) (string, error) {
	return s.bucket.presign(ctx, objectKey, fileName)
}

func (s *ResourceStorage) DeleteFile(ctx context.Context, objectKey string) error {
	return s.bucket.remove(ctx, objectKey)
}
