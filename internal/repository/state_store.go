package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state.
// Implementations: in-memory (default, single instance), Redis, or Postgres.
// A zero ttl means the entry never expires.
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent (or expired) and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Update overwrites an existing key and keeps its original expiry.
	// It reports false when the key is absent.
	Update(ctx context.Context, key string, value []byte) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// PurgeExpired removes expired entries and returns how many were dropped.
	PurgeExpired(ctx context.Context) (int, error)
}
