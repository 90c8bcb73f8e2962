package storage

import "errors"

// ErrKeyNotFound is returned when a key has no persisted value.
var ErrKeyNotFound = errors.New("key not found")

// Store is the durable client-side key-value storage port. Values are opaque
// strings (the session and cart state are stored as JSON). The Go rendering of
// the browser's localStorage: small, string-valued, survives restarts.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
