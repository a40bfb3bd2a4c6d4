// Package storage provides the key-value engines the database runs on: an
// in-memory engine for tests and ephemeral databases, and an append-only
// disk engine with crash recovery.
package storage

import "errors"

var (
	ErrKeyNotFound = errors.New("storage: key not found")
	ErrClosed      = errors.New("storage: engine closed")
)

// Engine is the contract every storage backend satisfies. Keys and values
// are opaque byte strings; ordering is lexicographic on the raw bytes.
type Engine interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// ScanPrefix iterates every live pair whose key starts with prefix,
	// in ascending key order. The iterator sees a snapshot of the keys
	// present at call time.
	ScanPrefix(prefix []byte) (Iterator, error)

	// Flush forces buffered writes to stable storage.
	Flush() error

	// Close releases the engine. Further calls return ErrClosed.
	Close() error
}

// Iterator walks key-value pairs in key order. Usage:
//
//	for it.Next() {
//	    k, v := it.Key(), it.Value()
//	}
//	if err := it.Err(); err != nil { ... }
//	it.Close()
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}
