package storage

import (
	"context"
	"errors"
)

var (
	// ErrOutOfBounds is returned for a vector index outside [0, Len).
	ErrOutOfBounds = errors.New("index out of bounds")

	// ErrReadOnly is returned by Put inside View.
	ErrReadOnly = errors.New("write inside read-only view")

	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("corrupt stored value")

	// ErrClosed is returned by a backend used after Close.
	ErrClosed = errors.New("backend closed")
)

// KV is the raw view of one namespace during an event.
type KV interface {
	// Get returns the value at key and whether it exists.
	Get(key string) ([]byte, bool, error)

	// Put stores value at key, replacing any previous value.
	Put(key string, value []byte) error

	// Keys returns every key in the namespace in ascending order.
	Keys() ([]string, error)
}

// Backend runs events against namespaced state.
type Backend interface {
	// Update runs fn in a read-write transaction on namespace ns. Writes
	// are committed only if fn returns nil.
	Update(ctx context.Context, ns string, fn func(KV) error) error

	// View runs fn in a read-only transaction on namespace ns.
	View(ctx context.Context, ns string, fn func(KV) error) error

	// Close releases the backend.
	Close() error
}
