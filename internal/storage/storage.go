package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("storage: object not found")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
	Meta        map[string]string
}

// BlobStore persists uploaded and extracted images. Keys are slash-separated
// paths scoped per user, e.g. "users/42/captures/cap-1.png".
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) error
	Get(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
