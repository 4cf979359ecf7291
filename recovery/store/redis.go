package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTransport stores each location as a Redis string key.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	transport := store.NewRedisTransport(client, store.WithKeyPrefix("etl:"))
//
// The caller owns the client lifecycle.
type RedisTransport struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisTransport.
type RedisOption func(*RedisTransport)

// WithKeyPrefix namespaces every key written by the transport.
func WithKeyPrefix(prefix string) RedisOption {
	return func(t *RedisTransport) { t.prefix = prefix }
}

// WithTTL expires stored snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(t *RedisTransport) { t.ttl = ttl }
}

// NewRedisTransport creates a RedisTransport using client.
func NewRedisTransport(client redis.Cmdable, opts ...RedisOption) *RedisTransport {
	t := &RedisTransport{client: client, prefix: "recovery:"}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *RedisTransport) key(location string) string {
	return t.prefix + location
}

// Ping verifies the Redis connection is alive.
func (t *RedisTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RedisTransport) Exists(ctx context.Context, location string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(location)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", t.key(location), err)
	}
	return n > 0, nil
}

func (t *RedisTransport) Read(ctx context.Context, location string) ([]byte, error) {
	data, err := t.client.Get(ctx, t.key(location)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", t.key(location), err)
	}
	return data, nil
}

func (t *RedisTransport) Write(ctx context.Context, location string, data []byte) error {
	if err := t.client.Set(ctx, t.key(location), data, t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write key %s: %w", t.key(location), err)
	}
	return nil
}

func (t *RedisTransport) Remove(ctx context.Context, location string) error {
	if err := t.client.Del(ctx, t.key(location)).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", t.key(location), err)
	}
	return nil
}

func (t *RedisTransport) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	match := t.key(prefix) + "*"
	for {
		keys, next, err := t.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, t.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(out)
	return out, nil
}
