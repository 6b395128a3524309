package minio_storage

import (
	"EduHub/internal/config"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// LessonStorage keeps uploaded lesson videos.
type LessonStorage struct {
	bucket bucket
}

func NewLessonStorage(storage *MinioStorage) (*LessonStorage, error) {
	b, err := storage.bucket(config.BucketLessonMedia)
	if err != nil {
		return nil, err
	}
	return &LessonStorage{bucket: b}, nil
}

// UploadVideo stores a new video for the lesson. Every upload gets its own
// key so replacing a video never overwrites an object still referenced.
func (s *LessonStorage) UploadVideo(
	ctx context.Context,
	lessonID uuid.UUID,
	filename string,
	reader io.Reader,
	size int64,
	contentType string,
) (objectKey string, err error) {
	objectKey = fmt.Sprintf("lessons/%s/video-%s%s", lessonID, uuid.NewString(), extension(filename))
	if err = s.bucket.put(ctx, objectKey, reader, size, contentType); err != nil {
		return "", err
	}
	return objectKey, nil
}

func (s *LessonStorage) VideoURL(ctx context.Context, objectKey string) (string, error) {
	return s.bucket.presign(ctx, objectKey, "")
}

func (s *LessonStorage) DeleteVideo(ctx context.Context, objectKey string) error {
	return s.bucket.remove(ctx, objectKey)
}
