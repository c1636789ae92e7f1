package storage

import (
	"context"
	"errors"
	"fmt"

	"fe-v2/pkg/redis"
)

// RedisStore persists values in Redis under environment-prefixed keys
type RedisStore struct {
	client *redis.Client
}

var _ Backend = (*RedisStore)(nil)

// NewRedisStore wraps an already connected client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.client.KeyBuilder.BuildKey(key))
	if errors.Is(err, redis.ErrNil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Set stores without expiry; the session outlives any fixed TTL
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.client.KeyBuilder.BuildKey(key), value, 0); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Delete(ctx, s.client.KeyBuilder.BuildKey(key)); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
