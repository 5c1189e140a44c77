package backstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a snapshot blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for storing immutable snapshot blobs.
type Store interface {
	// Open opens a snapshot blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Put writes a snapshot blob atomically, replacing any existing blob
	// with the same name.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a snapshot blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all snapshot blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a snapshot blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// ReadAll reads the full content of a blob.
func ReadAll(b Blob) ([]byte, error) {
	size := b.Size()
	if size == 0 {
		return nil, nil
	}

	data := make([]byte, size)
	n, err := b.ReadAt(data, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data[:n], nil
}
