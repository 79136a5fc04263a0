package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the snapshot as a JSON value under a fixed key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed snapshot store addressed by key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// DialRedis connects to Redis from either a redis:// URL or a host:port
// address and verifies the connection with a short ping.
func DialRedis(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("snapshot: invalid REDIS_URL %q: %w", addr, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("snapshot: redis ping: %w", err)
	}
	return client, nil
}

// Load returns the stored snapshot, or (nil, nil) when the key is absent.
func (r *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: redis get %s: %w", r.key, err)
	}

	var s Snapshot
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", r.key, err)
	}
	return &s, nil
}

// Save overwrites the stored snapshot. No TTL: the snapshot lives until the
// next write or an explicit Clear.
func (r *RedisStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

// Clear removes the snapshot key.
func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
