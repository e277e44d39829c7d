// Package cache defines the key/value cache the outbox service writes
// gateway ids and delivery statuses to.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache: key not found")

// Cache is a small key/value cache with per-key expiry.
type Cache interface {
	Ping(ctx context.Context) error

	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetMany stores every entry of values with the same TTL in one round trip.
	SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error

	// Get retrieves a value by key, returning ErrMiss if it is absent.
	Get(ctx context.Context, key string) (string, error)
}
