// Package storage keeps uploaded cover images and certificate scans in an
// S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/pubflow/internal/infrastructure/config"
)

// UploadOptions describe the stored object.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStore is the blob storage port of the workflow.
type ObjectStore interface {
	// Upload stores size bytes from r under key and returns the object URL.
	Upload(ctx context.Context, key string, r io.Reader, size int64, opts UploadOptions) (string, error)

	// SignedURL returns a time-limited GET URL for key.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewObjectStore builds the store named by cfg.Driver and wraps it in the
// circuit breaker.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	var (
		store ObjectStore
		err   error
	)
	switch cfg.Driver {
	case "minio":
		store, err = NewMinioStore(ctx, cfg)
	case "s3":
		store, err = NewS3Store(ctx, cfg)
	case "memory":
		store = NewMemoryStore(cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return NewBreakerStore(store, cfg), nil
}

// CoverKey is covers/<book>/v<version>/<unix>-<uuid><ext>.
func CoverKey(bookID uint, version int, fileName string, now time.Time) string {
	return fmt.Sprintf("covers/%d/v%d/%d-%s%s", bookID, version, now.Unix(), uuid.NewString(), ext(fileName))
}

// CertificateKey is isbn-certificates/<book>/<isbn13>/<unix>-<uuid><ext>.
func CertificateKey(bookID uint, isbn13, fileName string, now time.Time) string {
	return fmt.Sprintf("isbn-certificates/%d/%s/%d-%s%s", bookID, isbn13, now.Unix(), uuid.NewString(), ext(fileName))
}

func ext(fileName string) string {
	e := strings.ToLower(path.Ext(fileName))
	if len(e) > 10 {
		return ""
	}
	return e
}

// objectURL joins base and key; base has no trailing slash requirement.
func objectURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
