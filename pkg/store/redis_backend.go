package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend using Redis.
// It serves as the remote, eventually-visible side of the dual store;
// the engine treats it as unreachable-tolerant and never depends on it
// for correctness.
type RedisBackend struct {
	client *redis.Client
	prefix string
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all snapshot keys (default: "focusforge:state:").
	Prefix string
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisBackend creates a new Redis store backend.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "focusforge:state:"
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{client: client, prefix: prefix}, nil
}

// NewRedisBackendFromClient creates a Redis backend from an existing client.
// This is useful for testing with miniredis.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "focusforge:state:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) blobKey(key string) string {
	return b.prefix + "blob:" + key
}

func (b *RedisBackend) indexKey() string {
	return b.prefix + "keys"
}

// Save writes the blob for a key, overwriting any previous value.
func (b *RedisBackend) Save(ctx context.Context, key string, blob Blob) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrStoreClosed
	}
	b.mu.RUnlock()

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal blob: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.blobKey(key), data, 0)
	pipe.SAdd(ctx, b.indexKey(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save blob: %w", err)
	}

	return nil
}

// Load retrieves the blob for a key.
func (b *RedisBackend) Load(ctx context.Context, key string) (Blob, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return Blob{}, ErrStoreClosed
	}
	b.mu.RUnlock()

	data, err := b.client.Get(ctx, b.blobKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("get blob: %w", err)
	}

	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		return Blob{}, ErrNotFound
	}

	return blob, nil
}

// Keys lists all keys present in the store.
func (b *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	b.mu.RUnlock()

	keys, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Close releases resources held by the backend.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	return b.client.Close()
}

// Ping checks if the Redis connection is alive.
func (b *RedisBackend) Ping(ctx context.Context) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrStoreClosed
	}
	b.mu.RUnlock()

	return b.client.Ping(ctx).Err()
}
