package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"casegen/internal/common/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketClient wraps the S3-compatible SDK client for the primary object
// storage holding project buckets.
type BucketClient struct {
	client    *minio.Client
	transport *http.Transport
}

// NewBucketClient initializes and returns a bucket client.
func NewBucketClient(cfg config.BucketConfig) (*BucketClient, error) {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   50,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression: true,
		DisableKeepAlives:  false,
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, err
	}

	return &BucketClient{client: cli, transport: transport}, nil
}

// Upload writes data to the given object key.
func (b *BucketClient) Upload(ctx context.Context, bucket, key string, data []byte) error {
	reader := bytes.NewReader(data)
	_, err := b.client.PutObject(ctx, bucket, key, reader, int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Download reads the full object into memory.
func (b *BucketClient) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := b.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	if _, err := object.Stat(); err != nil {
		return nil, err
	}

	return io.ReadAll(object)
}

// Remove deletes the object.
func (b *BucketClient) Remove(ctx context.Context, bucket, key string) error {
	return b.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// PresignGet mints a time-limited signed read URL for the object.
func (b *BucketClient) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PresignPut mints a time-limited signed write URL. The remote job writes
// its result through this URL directly to the object's final location.
func (b *BucketClient) PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, bucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Shutdown closes idle connections held by the transport.
func (b *BucketClient) Shutdown() {
	if b.transport != nil {
		b.transport.CloseIdleConnections()
	}
}
