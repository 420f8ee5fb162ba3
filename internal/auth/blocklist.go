// File: internal/auth/blocklist.go
package auth

import (
	"context"
	"fmt"
	"time"

	"operationcode_backend/internal/config"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// TokenBlocklist records revoked refresh tokens by JWT ID until they would have expired.
type TokenBlocklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NewTokenBlocklist shares revocations through Redis when REDIS_URL is set and keeps
// them in process memory otherwise.
func NewTokenBlocklist(cfg *config.Config) (TokenBlocklist, error) {
	if cfg.RedisURL == "" {
		return NewInMemoryBlocklist(time.Minute), nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return NewRedisBlocklist(redis.NewClient(opt)), nil
}

// InMemoryBlocklist is a TokenBlocklist backed by an expiring cache.
type InMemoryBlocklist struct {
	cache *cache.Cache
}

func NewInMemoryBlocklist(cleanupInterval time.Duration) *InMemoryBlocklist {
	return &InMemoryBlocklist{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *InMemoryBlocklist) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(jti, struct{}{}, ttl)
	return nil
}

func (s *InMemoryBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := s.cache.Get(jti)
	return found, nil
}

const blocklistKeyPrefix = "operationcode:revoked:"

// RedisBlocklist is a TokenBlocklist shared by every instance using the same Redis.
type RedisBlocklist struct {
	client *redis.Client
}

func NewRedisBlocklist(client *redis.Client) *RedisBlocklist {
	return &RedisBlocklist{client: client}
}

func (s *RedisBlocklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, blocklistKeyPrefix+jti, 1, ttl).Err()
}

func (s *RedisBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, blocklistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisBlocklist) Close() error {
	return s.client.Close()
}
