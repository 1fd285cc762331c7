// Package kv provides the key-value persistence channel the state store
// writes its snapshot through. Backends are interchangeable; the store only
// sees Channel.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Channel is a minimal durable key-value store. Values are opaque bytes.
type Channel interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
