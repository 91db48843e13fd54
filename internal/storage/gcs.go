package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend writes objects to a Cloud Storage bucket, the Firebase Storage
// bucket of the project in production.
type GCSBackend struct {
	client     *storage.Client
	bucketName string
}

// NewGCSBackend creates a new GCSBackend
func NewGCSBackend(ctx context.Context, bucketName, credentialsFile string) (*GCSBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBackend{client: client, bucketName: bucketName}, nil
}

// Put implements Backend
func (b *GCSBackend) Put(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	writer := b.client.Bucket(b.bucketName).Object(path).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", path, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucketName, path), nil
}

// Close releases the storage client
func (b *GCSBackend) Close() error {
	return b.client.Close()
}
