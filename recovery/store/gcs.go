package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSTransport stores each location as an object in a Google Cloud Storage
// bucket, under an optional prefix.
//
// Credentials are resolved by the storage client: GOOGLE_APPLICATION_CREDENTIALS,
// application-default login, or the metadata service.
type GCSTransport struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSTransport creates a client and verifies the bucket is accessible.
func NewGCSTransport(ctx context.Context, bucket, prefix string) (*GCSTransport, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucket, err)
	}

	return &GCSTransport{client: client, bucket: bucket, prefix: prefix}, nil
}

func (t *GCSTransport) object(location string) *storage.ObjectHandle {
	return t.client.Bucket(t.bucket).Object(t.key(location))
}

func (t *GCSTransport) key(location string) string {
	if t.prefix == "" {
		return location
	}
	return path.Join(t.prefix, location)
}

func (t *GCSTransport) Exists(ctx context.Context, location string) (bool, error) {
	_, err := t.object(location).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return true, nil
}

func (t *GCSTransport) Read(ctx context.Context, location string) ([]byte, error) {
	r, err := t.object(location).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", t.bucket, t.key(location), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return data, nil
}

func (t *GCSTransport) Write(ctx context.Context, location string, data []byte) error {
	w := t.object(location).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.CacheControl = "no-cache, max-age=0"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", t.bucket, t.key(location), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return nil
}

func (t *GCSTransport) Remove(ctx context.Context, location string) error {
	err := t.object(location).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return nil
}

func (t *GCSTransport) List(ctx context.Context, prefix string) ([]string, error) {
	query := &storage.Query{Prefix: t.key(prefix)}
	if prefix == "" && t.prefix != "" {
		query.Prefix = t.prefix + "/"
	}

	var out []string
	it := t.client.Bucket(t.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s: %w", t.bucket, err)
		}
		name := attrs.Name
		if t.prefix != "" {
			name = strings.TrimPrefix(strings.TrimPrefix(name, t.prefix), "/")
		}
		out = append(out, name)
	}
	return out, nil
}

// Close releases the storage client.
func (t *GCSTransport) Close() error {
	return t.client.Close()
}
