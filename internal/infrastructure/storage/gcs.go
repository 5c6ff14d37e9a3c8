package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// GCS stores documents in a bucket under the uploads/ prefix.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

func gcsObject(key string) string { return "uploads/" + key }

// PublicURL builds a public URL for an object (assuming public read access or signed URLs)
func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectPath)
}

func (g *GCS) Save(ctx context.Context, key, contentType string, r io.Reader, _ int64) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	obj := gcsObject(key)
	wc := g.client.Bucket(g.bucket).Object(obj).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // documents are small; single request upload
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return PublicURL(g.bucket, obj), nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := g.client.Bucket(g.bucket).Object(gcsObject(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

var _ FileStore = (*GCS)(nil)
