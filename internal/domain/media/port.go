package media

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupportedType is returned for uploads that are not images the model can read.
var ErrUnsupportedType = errors.New("unsupported media type")

// ErrNotFound is returned when an object key does not exist in the bucket.
var ErrNotFound = errors.New("media object not found")

// PresignedURL is a time-limited URL for one object.
type PresignedURL struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store port (interface untuk penyimpanan media)
type Store interface {
	PresignUpload(ctx context.Context, key string) (PresignedURL, error)
	PresignDownload(ctx context.Context, key string) (PresignedURL, error)
	Exists(ctx context.Context, key string) (bool, error)
}
