package store

import (
	"context"
	"sync"
	"time"
)

// pruneInterval bounds how often writes sweep expired entries
const pruneInterval = time.Minute

// MemoryStore keeps nonces and invalidated tokens in process memory.
// It suits single-instance deployments and tests.
type MemoryStore struct {
	nonces            map[string]time.Time
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex

	now       func() time.Time
	lastPrune time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:            make(map[string]time.Time),
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// PutNonce registers a nonce that stays live for ttl
func (s *MemoryStore) PutNonce(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.maybePruneLocked(now)
	s.nonces[nonce] = now.Add(ttl)

	return nil
}

// ConsumeNonce deletes the nonce, reporting whether it was live
func (s *MemoryStore) ConsumeNonce(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.nonces[nonce]
	if !exists {
		return false, nil
	}
	delete(s.nonces, nonce)

	return s.now().Before(expiryTime), nil
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.maybePruneLocked(now)
	s.invalidatedTokens[tokenID] = now.Add(expiry)

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	return s.now().Before(expiryTime), nil
}

// maybePruneLocked sweeps at most once per pruneInterval; callers hold the write lock
func (s *MemoryStore) maybePruneLocked(now time.Time) {
	if now.Sub(s.lastPrune) < pruneInterval {
		return
	}
	s.lastPrune = now
	s.pruneLocked(now)
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for k, exp := range s.nonces {
		if !now.Before(exp) {
			delete(s.nonces, k)
		}
	}
	for k, exp := range s.invalidatedTokens {
		if !now.Before(exp) {
			delete(s.invalidatedTokens, k)
		}
	}
}
