// Package publish uploads processed assets to public object storage. The
// pre-upload existence check is the pipeline's de-duplication mechanism: an
// object already present at its logical path is never uploaded again.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/vizzaro-home/wallsync/internal/config"
	"github.com/vizzaro-home/wallsync/internal/retry"
)

// PublishError is returned only after the retry budget is exhausted. The
// affected record is marked imageless for the run; the collection continues.
type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ObjectStore is the slice of the minio client the publisher needs.
type ObjectStore interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Publisher struct {
	store   ObjectStore
	bucket  string
	baseURL string
	retry   retry.Policy
}

func New(store ObjectStore, cfg config.Blob, policy retry.Policy) *Publisher {
	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &Publisher{
		store:   store,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		retry:   policy,
	}
}

// Publish stores data at key and returns its public URL. If an object
// already exists at the key the existing URL is returned without an upload.
func (p *Publisher) Publish(ctx context.Context, key string, data []byte) (string, error) {
	_, statErr := p.store.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if statErr == nil {
		slog.Debug("Object already published", "key", key)
		return p.url(key), nil
	}
	if code := minio.ToErrorResponse(statErr).Code; code != "NoSuchKey" {
		// Not a clean miss. Dedup is lost for this call only; uploading to
		// the same key is idempotent, so prefer that over failing the record.
		slog.Warn("Existence check failed, uploading anyway", "key", key, "err", statErr)
	}

	err := p.retry.Do(ctx, "upload "+key, func() error {
		_, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: http.DetectContentType(data),
		})
		return err
	})
	if err != nil {
		return "", &PublishError{Key: key, Err: err}
	}

	return p.url(key), nil
}

func (p *Publisher) url(key string) string {
	return p.baseURL + "/" + key
}

// ObjectKey namespaces an asset under its collection so identically named
// files in different collections cannot collide.
func ObjectKey(collectionID, filename string) string {
	collapse := func(s string) string {
		return strings.Join(strings.Fields(s), "_")
	}
	return fmt.Sprintf("wallpapers/%s/%s", collapse(collectionID), collapse(filename))
}
