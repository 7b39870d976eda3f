// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"guesstream/internal/models"
)

// DefaultRedisKey is the key holding the viewer document when no override
// is configured.
const DefaultRedisKey = "guesstream_viewers"

// RedisBackend keeps the same wholesale JSON document contract as
// FileBackend, stored under a single Redis key. Useful when the overlay
// server runs somewhere without a writable disk.
type RedisBackend struct {
	rdb *redis.Client
	key string
}

// NewRedisBackend connects to Redis and verifies the connection with a ping.
func NewRedisBackend(addr string, db int, key string) (*RedisBackend, error) {
	if key == "" {
		key = DefaultRedisKey
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisBackend{rdb: rdb, key: key}, nil
}

func (r *RedisBackend) Load(ctx context.Context) (map[string]models.Viewer, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]models.Viewer{}, nil
	}
	if err != nil {
		return nil, err
	}

	viewers := map[string]models.Viewer{}
	if err := json.Unmarshal(data, &viewers); err != nil {
		return nil, fmt.Errorf("decode viewer document at key %q: %w", r.key, err)
	}

	return viewers, nil
}

func (r *RedisBackend) Save(ctx context.Context, viewers map[string]models.Viewer) error {
	data, err := json.Marshal(viewers)
	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, r.key, data, 0).Err()
}

// Close releases the underlying client.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}
