// Package storage persists uploaded PKS documents.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

// FileStore saves documents and returns their public URL.
type FileStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// validKey rejects keys that could escape the upload location.
func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
