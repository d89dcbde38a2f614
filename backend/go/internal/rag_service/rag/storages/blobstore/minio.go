package blobstore

import (
	"context"
	"fmt"
	"io"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/minio/minio-go/v7"
)

// MinioStore keeps uploaded files in a single MinIO bucket. Object names are
// already tenant-prefixed by the caller.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a new MinioStore.
func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// Upload stores r under objectName.
func (s *MinioStore) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectName, err)
	}
	return nil
}

// Download writes the object to localPath.
func (s *MinioStore) Download(ctx context.Context, objectName, localPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, objectName, localPath, minio.GetObjectOptions{}); err != nil {
		return classify(objectName, err)
	}
	return nil
}

func classify(objectName string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w: %s", schema.ErrDownload, schema.ErrNotFound, objectName)
	}
	return fmt.Errorf("%w: %s: %w", schema.ErrDownload, objectName, err)
}

var _ interfaces.BlobStore = (*MinioStore)(nil)
