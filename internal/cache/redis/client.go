package redis

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/elk-messaging/internal/cache"
	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
)

// Client implements cache.Cache on top of go-redis.
type Client struct {
	rdb redis.UniversalClient
}

// New creates a Redis client for the given address, password and DB number.
func New(addr, password string, dbNumber int) *Client {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           dbNumber,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}))
}

// NewFromClient wraps an existing go-redis client, e.g. a cluster client.
func NewFromClient(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// SetMany writes all entries through a single pipeline.
func (c *Client) SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, k, v, ttl)
		}
		return nil
	})
	return err
}

// Get retrieves a value by key. redis.Nil is reported as cache.ErrMiss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	return v, err
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

var _ cache.Cache = (*Client)(nil)
