package blob

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig is returned when storage is constructed with
	// incomplete configuration.
	ErrInvalidConfig = errors.New("blob: invalid config")
	// ErrStoreFailed is returned when the backend rejects an upload.
	ErrStoreFailed = errors.New("blob: failed to store object")
)

// Storage persists a payload under a key and returns its public URL.
type Storage interface {
	Store(ctx context.Context, data []byte, key, contentType string) (string, error)
}
