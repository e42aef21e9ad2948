package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/ports"
)

const nonceBytes = 16

// Config holds the lifetimes used by the auth service
type Config struct {
	NonceTTL   time.Duration
	SessionTTL time.Duration
}

// DefaultConfig returns the default lifetimes
func DefaultConfig() Config {
	return Config{
		NonceTTL:   5 * time.Minute,
		SessionTTL: time.Hour,
	}
}

// AuthService handles the SIWE handshake and the sessions it creates
type AuthService struct {
	nonces    ports.NonceStore
	tokens    ports.Store
	verifier  ports.SiweVerifier
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	logger    *log.Logger

	cfg    Config
	random io.Reader
	now    func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithRandom replaces the nonce entropy source
func WithRandom(r io.Reader) Option {
	return func(s *AuthService) { s.random = r }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	tokens ports.Store,
	verifier ports.SiweVerifier,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	logger *log.Logger,
	cfg Config,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		nonces:    nonces,
		tokens:    tokens,
		verifier:  verifier,
		tokenizer: tokenizer,
		eventPub:  eventPub,
		logger:    logger,
		cfg:       cfg,
		random:    rand.Reader,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NonceTTL is how long an issued nonce stays valid
func (s *AuthService) NonceTTL() time.Duration {
	return s.cfg.NonceTTL
}

// IssueNonce generates a nonce and registers it in the nonce store
func (s *AuthService) IssueNonce(ctx context.Context) (*core.Nonce, error) {
	buf := make([]byte, nonceBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return nil, fmt.Errorf("%w: failed to generate nonce: %v", core.ErrInternal, err)
	}

	now := s.now()
	nonce := &core.Nonce{
		Value:     hex.EncodeToString(buf),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.NonceTTL),
	}

	if err := s.nonces.PutNonce(ctx, nonce.Value, s.cfg.NonceTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInternal, err)
	}

	return nonce, nil
}

// CompleteSiwe finishes the handshake. sessionNonce is the nonce bound to the
// caller's session cookie; it must match the submitted one before anything
// else happens. A nonce that passes that check is consumed whatever the outcome.
func (s *AuthService) CompleteSiwe(ctx context.Context, sessionNonce string, req core.CompletionRequest) (*core.VerificationResult, error) {
	if sessionNonce == "" || subtle.ConstantTimeCompare([]byte(sessionNonce), []byte(req.Nonce)) != 1 {
		return nil, core.ErrNonceMismatch
	}

	live, err := s.nonces.ConsumeNonce(ctx, req.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInternal, err)
	}
	if !live {
		return nil, fmt.Errorf("%w: nonce expired or already used", core.ErrNonceMismatch)
	}

	res, err := s.verifier.Verify(ctx, req.Payload, req.Nonce)
	if err != nil {
		return nil, core.NewVerificationError(err)
	}
	if res == nil || !res.IsValid || res.Data == nil {
		return nil, &core.VerificationError{Reason: "signature verification failed"}
	}

	address := res.Data.Address
	if common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	token, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInternal, err)
	}

	if err := s.eventPub.PublishSignIn(ctx, session); err != nil {
		// Log the error but don't fail the sign-in
		s.logger.Warn("failed to publish sign-in event", "address", session.Address, "err", err)
	}

	return &core.VerificationResult{
		IsValid: true,
		Address: session.Address,
		Session: session,
		Token:   token,
	}, nil
}

// ValidateAccessToken returns the session behind a live access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.tokens.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	return session, nil
}

// Logout invalidates the session for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, session *core.Session) error {
	remaining := session.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}

	if err := s.tokens.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishSignOut(ctx, session); err != nil {
		s.logger.Warn("failed to publish sign-out event", "address", session.Address, "err", err)
	}

	return nil
}
