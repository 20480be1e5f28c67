// Package storage provides persistent storage for archived videos.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrEmptyKey is returned when an operation is attempted with an empty key.
var ErrEmptyKey = errors.New("storage: key must not be empty")

// Storage defines the interface for archived video storage.
// Keys are slash-separated paths such as "videos/task-123.mp4".
type Storage interface {
	// Save writes data under key and returns the URL of the stored object.
	Save(ctx context.Context, key string, data io.Reader) (url string, err error)

	// URL returns the URL an object stored under key would have.
	// It does not check that the object exists.
	URL(key string) string

	// Open reads the object stored under key.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Remove deletes the object stored under key.
	// Removing a key that does not exist is not an error.
	Remove(ctx context.Context, key string) error
}
