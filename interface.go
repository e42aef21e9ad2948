package trusttag

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/internal/eth"
)

// Client represents the public interface for the sign-in handshake
type Client interface {
	// Nonce asks the server for a fresh nonce and keeps its cookie
	Nonce(ctx context.Context) (string, error)

	// CompleteSiwe submits a signed payload together with the nonce it embeds
	CompleteSiwe(ctx context.Context, payload core.SiwePayload, nonce string) (*SignInResult, error)

	// Me returns the session behind an access token
	Me(ctx context.Context, token string) (*Profile, error)

	// Logout invalidates an access token
	Logout(ctx context.Context, token string) error
}

// Signer signs EIP-191 personal messages on behalf of a wallet
type Signer = eth.Signer

// KeySigner is a Signer backed by a secp256k1 private key
type KeySigner = eth.KeySigner

// NewKeySigner wraps a private key
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return eth.NewKeySigner(key)
}

// NewKeySignerFromHex parses a hex private key, with or without 0x
func NewKeySignerFromHex(hexKey string) (*KeySigner, error) {
	return eth.NewKeySignerFromHex(hexKey)
}

// SignInResult is returned by a successful completion
type SignInResult struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

// Profile describes the authenticated wallet
type Profile struct {
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is the signed-in account held by an Account
type Identity struct {
	Address string
	Token   string
}
