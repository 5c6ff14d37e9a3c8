package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioAPI is the subset of *minio.Client used here; tests swap in a fake.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// NewMinioClient dials an S3 compatible endpoint with static credentials.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

// Minio stores documents in an S3 compatible bucket.
type Minio struct {
	api       minioAPI
	bucket    string
	publicURL string
}

// NewMinio ensures the bucket exists. publicURL is the externally reachable bucket root.
func NewMinio(ctx context.Context, client *minio.Client, bucket, publicURL string) (*Minio, error) {
	if publicURL == "" {
		publicURL = client.EndpointURL().String() + "/" + bucket
	}
	return newMinioWithAPI(ctx, client, bucket, publicURL)
}

func newMinioWithAPI(ctx context.Context, api minioAPI, bucket, publicURL string) (*Minio, error) {
	m := &Minio{api: api, bucket: bucket, publicURL: publicURL}
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return m, nil
}

func (m *Minio) Save(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if size <= 0 {
		size = -1
	}
	_, err := m.api.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return joinURL(m.publicURL, key), nil
}

func (m *Minio) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := m.api.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

var _ FileStore = (*Minio)(nil)
