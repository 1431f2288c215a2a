package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/docmill/docmill/internal/gcp"
)

// blobStore is the slice of object storage behavior the services depend
// on. GCS backs it in production; tests substitute in-memory stores so
// the post-upload paths are reachable without a bucket.
type blobStore interface {
	// Stat returns an object's declared content type and size.
	Stat(ctx context.Context, bucket, object string) (contentType string, size int64, err error)
	// Read pulls an object fully into memory, capped at limit bytes.
	Read(ctx context.Context, bucket, object string, limit int64) ([]byte, error)
	// Write stores an object, retrying transient failures.
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
	// WriteIfAbsent stores an object only when it does not already exist
	// and reports whether this call created it.
	WriteIfAbsent(ctx context.Context, bucket, object, contentType string, data []byte) (created bool, err error)
}

// gcsStore adapts the GCS client and the shared transfer helpers to
// blobStore.
type gcsStore struct {
	client *storage.Client
}

func newGCSStore(ctx context.Context) (*gcsStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &gcsStore{client: client}, nil
}

func (s *gcsStore) Stat(ctx context.Context, bucket, object string) (string, int64, error) {
	attrs, err := s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read object attributes for gs://%s/%s: %w", bucket, object, err)
	}
	return attrs.ContentType, attrs.Size, nil
}

func (s *gcsStore) Read(ctx context.Context, bucket, object string, limit int64) ([]byte, error) {
	return gcp.ReadObject(ctx, s.client.Bucket(bucket).Object(object), limit)
}

func (s *gcsStore) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	return gcp.UploadObject(ctx, s.client.Bucket(bucket), object, contentType, data)
}

func (s *gcsStore) WriteIfAbsent(ctx context.Context, bucket, object, contentType string, data []byte) (bool, error) {
	return gcp.SaveObjectAtomically(ctx, s.client.Bucket(bucket), object, contentType, data)
}
