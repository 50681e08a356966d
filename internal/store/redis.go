package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each document as a string key <prefix><name>.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(addr, password string, db int, prefix string) *RedisBackend {
	return &RedisBackend{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
	}
}

func (r *RedisBackend) key(name string) string {
	return r.prefix + name
}

func (r *RedisBackend) Read(ctx context.Context, name string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get %s: %w", r.key(name), err)
	}
	return val, nil
}

func (r *RedisBackend) Write(ctx context.Context, name string, data []byte) error {
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %s: %w", r.key(name), err)
	}
	return nil
}

// Ping checks if Redis is alive
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
