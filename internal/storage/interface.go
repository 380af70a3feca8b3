package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object storage operations used for report exports
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns a URL for downloading an object. Buckets without a
	// public URL get a time-limited presigned link.
	GetURL(ctx context.Context, key string) (string, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
