// Package storage provides the key-value store behind the keystore and the
// broadcast journal.
package storage

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch groups writes that are committed together.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by stores with atomic batches.
type Batcher interface {
	NewBatch() Batch
}

// Snapshotter is implemented by stores that can export and import their
// full contents.
type Snapshotter interface {
	Backup(w io.Writer) error
	Restore(r io.Reader) error
}
