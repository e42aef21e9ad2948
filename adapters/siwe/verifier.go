package siwe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/trusttag/core"
	"github.com/layer-3/trusttag/internal/eth"
)

var (
	ErrPayloadStatus    = errors.New("wallet auth payload is not a success payload")
	ErrMissingField     = errors.New("missing message or signature")
	ErrNonceNotEmbedded = errors.New("nonce in message does not match")
	ErrAddressMismatch  = errors.New("payload address does not match message address")
	ErrExpired          = errors.New("message has expired")
	ErrNotYetValid      = errors.New("message is not yet valid")
	ErrIssuedInFuture   = errors.New("message is issued in the future")
	ErrDomainMismatch   = errors.New("message domain is not allowed")
	ErrChainMismatch    = errors.New("message chain id is not allowed")
)

// maxClockSkew is how far Issued At may run ahead of the server clock
const maxClockSkew = time.Minute

// Verifier checks MiniKit wallet auth payloads.
// EOA signatures are recovered locally; anything else falls back to ERC-1271
// when a contract checker is configured.
type Verifier struct {
	domains  []string
	chainID  int64
	contract *ContractSignatureChecker
	now      func() time.Time
}

// Option configures a Verifier
type Option func(*Verifier)

// WithDomains restricts accepted message domains
func WithDomains(domains ...string) Option {
	return func(v *Verifier) { v.domains = domains }
}

// WithChainID restricts the accepted chain id
func WithChainID(id int64) Option {
	return func(v *Verifier) { v.chainID = id }
}

// WithContractChecker enables ERC-1271 verification for contract wallets
func WithContractChecker(c *ContractSignatureChecker) Option {
	return func(v *Verifier) { v.contract = c }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a new SIWE verifier
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates the payload and returns the parsed message on success
func (v *Verifier) Verify(ctx context.Context, payload core.SiwePayload, nonce string) (*core.VerifyResult, error) {
	if payload.Status != "" && payload.Status != "success" {
		return nil, ErrPayloadStatus
	}
	if payload.Message == "" || payload.Signature == "" {
		return nil, ErrMissingField
	}

	msg, err := ParseMessage(payload.Message)
	if err != nil {
		return nil, err
	}

	if msg.Nonce != nonce {
		return nil, ErrNonceNotEmbedded
	}
	if payload.Address != "" && !strings.EqualFold(payload.Address, msg.Address) {
		return nil, ErrAddressMismatch
	}

	now := v.now()
	if msg.IssuedAt.After(now.Add(maxClockSkew)) {
		return nil, ErrIssuedInFuture
	}
	if msg.ExpirationTime != nil && !now.Before(*msg.ExpirationTime) {
		return nil, ErrExpired
	}
	if msg.NotBefore != nil && now.Before(*msg.NotBefore) {
		return nil, ErrNotYetValid
	}
	if len(v.domains) > 0 && !containsFold(v.domains, msg.Domain) {
		return nil, ErrDomainMismatch
	}
	if v.chainID != 0 && msg.ChainID != v.chainID {
		return nil, ErrChainMismatch
	}

	sig, err := eth.DecodeSignature(payload.Signature)
	if err != nil {
		return nil, err
	}

	ok, err := v.verifySignature(ctx, msg, []byte(payload.Message), sig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrInvalidSignature
	}

	return &core.VerifyResult{IsValid: true, Data: msg}, nil
}

func (v *Verifier) verifySignature(ctx context.Context, msg *core.SiweMessage, raw []byte, sig []byte) (bool, error) {
	expected := common.HexToAddress(msg.Address)

	if len(sig) == eth.SignatureLength {
		ok, err := eth.VerifySignatureAgainstAddress(raw, sig, expected)
		if err == nil && ok {
			return true, nil
		}
		if v.contract == nil {
			return false, err
		}
	}

	if v.contract == nil {
		return false, fmt.Errorf("%w: unsupported signature length %d", eth.ErrMalformedSignature, len(sig))
	}

	return v.contract.IsValidSignature(ctx, expected, eth.TextHash(raw), sig)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
