package ports

import (
	"context"
	"time"
)

// NonceStore is the server-side registry of issued nonces
type NonceStore interface {
	// PutNonce registers an issued nonce until ttl elapses
	PutNonce(ctx context.Context, nonce string, ttl time.Duration) error
	// ConsumeNonce removes the nonce and reports whether it was still live
	ConsumeNonce(ctx context.Context, nonce string) (bool, error)
}

// Store interface for token invalidation
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
