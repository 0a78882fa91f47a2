package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobObject is one upload. Metadata is stored as object user metadata.
type BlobObject struct {
	Path        string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, obj BlobObject) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}
