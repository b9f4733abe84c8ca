package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/hiroki-koketsu/go-todolists/internal/persistence"
)

// Backend stores the document as a single object in a GCS bucket.
type Backend struct {
	client *storage.Client
	bucket string
	object string
}

// NewBackend creates a GCS backend.
// Without options the client uses application default credentials
// (e.g. GOOGLE_APPLICATION_CREDENTIALS).
func NewBackend(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*Backend, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &Backend{
		client: client,
		bucket: bucket,
		object: object,
	}, nil
}

func (b *Backend) handle() *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.object)
}

// Read downloads the object, or returns persistence.ErrNoDocument if it
// does not exist.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	r, err := b.handle().NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, persistence.ErrNoDocument
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Write uploads data, replacing the object.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	w := b.handle().NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

// Delete removes the object. Missing objects are not an error.
func (b *Backend) Delete(ctx context.Context) error {
	err := b.handle().Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}
