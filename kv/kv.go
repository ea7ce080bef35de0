package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its TTL has
// expired.
var ErrNotFound = errors.New("key not found")

// PutOptions control expiry and the metadata blob stored alongside a
// value.
type PutOptions struct {
	// TTL of zero means the value never expires.
	TTL time.Duration

	// Metadata is stored next to the value and returned by
	// GetWithMetadata. The realtime publisher uses it to carry
	// the feed timestamp the read API turns into an ETag.
	Metadata json.RawMessage
}

// Store is a small key-value store with per-key TTL and metadata.
// Writes replace the whole value atomically: a reader sees either
// the previous value or the new one, never a mix.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error)
	Put(ctx context.Context, key string, value []byte, opts PutOptions) error
	Close() error
}
