package storage

import (
	"context"
	"io"
	"time"
)

// Store defines the interface for blob storage backends. Objects are
// addressed by a generated key; the original filename lives in the database.
type Store interface {
	// Save writes the object and returns the number of bytes written.
	Save(ctx context.Context, key string, data io.Reader, size int64) (int64, error)
	// Open returns a reader over the object's contents.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error
	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns all stored objects with their modification times.
	List(ctx context.Context) ([]Object, error)
	// EnsureReady prepares the backend (directory, bucket) for use.
	EnsureReady(ctx context.Context) error
}

// Object describes a stored blob.
type Object struct {
	Key     string
	ModTime time.Time
}
