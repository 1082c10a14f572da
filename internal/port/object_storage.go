package port

import (
	"context"
	"io"
)

type ObjectStorage interface {
	// Upload stores r under bucket/path and returns the stored path
	Upload(ctx context.Context, bucket, path string, r io.Reader) (string, error)

	PublicURL(bucket, path string) string
}
