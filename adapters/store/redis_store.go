package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	noncePrefix       = "trusttag:nonce:"
	invalidatedPrefix = "trusttag:invalidated:"
)

// ErrNonceExists is returned when a nonce is registered twice
var ErrNonceExists = errors.New("nonce already issued")

// RedisStore shares nonces and token invalidations across instances
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// PutNonce stores the nonce with the given TTL
func (s *RedisStore) PutNonce(ctx context.Context, nonce string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, noncePrefix+nonce, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	if !ok {
		return ErrNonceExists
	}

	return nil
}

// ConsumeNonce atomically reads and deletes the nonce key
func (s *RedisStore) ConsumeNonce(ctx context.Context, nonce string) (bool, error) {
	err := s.client.GetDel(ctx, noncePrefix+nonce).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return true, nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, invalidatedPrefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, invalidatedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}
