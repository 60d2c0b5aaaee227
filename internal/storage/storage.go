package storage

import (
	"context"
	"time"
)

// ObjectStore is the project-bucket surface the pipeline stages through.
// Keys are object paths inside a caller-supplied bucket; the bucket itself
// is provisioned and owned by the project-management subsystem.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Remove(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}
