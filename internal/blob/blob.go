// Package blob stores raw data files in an S3-compatible object store.
package blob

import (
	"context"
	"io"
)

// Store is the write-side surface the ingestion pipeline needs from
// object storage.
type Store interface {
	// Put uploads the reader's content under key.
	Put(ctx context.Context, key string, r io.Reader) error
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}
