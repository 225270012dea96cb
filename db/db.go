// Package db defines the key-value storage used to persist proving artifacts
// and generated proofs.
package db

import (
	"errors"
	"io"
)

// Supported database backends.
const (
	TypePebble   = "pebble"
	TypeInMemory = "inmemory"
)

var (
	// ErrKeyNotFound is returned when a key does not exist in the db.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned when a transaction read keys that were
	// modified concurrently by another transaction.
	ErrConflict = errors.New("txn conflict")
	// ErrTxClosed is returned when committing a transaction twice or after
	// a discard.
	ErrTxClosed = errors.New("txn already committed or discarded")
)

// Options defines generic parameters for creating a new Database.
type Options struct {
	Path string
}

// Database wraps all database operations. All methods are safe for
// concurrent use.
type Database interface {
	io.Closer
	Reader

	// WriteTx creates a new write transaction.
	WriteTx() WriteTx

	// Compact compacts the underlying storage.
	Compact() error
}

// Reader contains the read-only database operations.
type Reader interface {
	// Get retrieves the value for the given key. If the key does not
	// exist, returns ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Iterate calls callback with all key-value pairs whose key starts with
	// prefix, ordered lexicographically. Keys are passed with the prefix
	// stripped. The iteration stops when callback returns false.
	//
	// The key and value slices are only valid until callback returns.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is a batch of writes that is applied atomically on Commit.
type WriteTx interface {
	Reader

	// Set adds or updates a key-value pair.
	Set(key []byte, value []byte) error
	// Delete deletes a key and its value.
	Delete(key []byte) error
	// Commit commits the transaction into the db. Calling Commit more
	// than once, or after Discard, returns ErrTxClosed.
	Commit() error
	// Discard releases the transaction. It can be called after Commit so
	// that it is safe to defer.
	Discard()
}
