// Package eth holds the Ethereum signing primitives used by the SIWE flow:
// EIP-191 personal-message hashing, signing and public key recovery.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of an r || s || v secp256k1 signature
const SignatureLength = crypto.SignatureLength

var ErrMalformedSignature = errors.New("malformed signature")

// Signer signs personal messages on behalf of an address
type Signer interface {
	Address() common.Address
	SignText(msg []byte) ([]byte, error)
}

// KeySigner signs with an in-memory private key
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner wraps a private key
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewKeySignerFromHex parses a hex private key, with or without 0x prefix
func NewKeySignerFromHex(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewKeySigner(key), nil
}

func (s *KeySigner) Address() common.Address { return s.addr }

// SignText produces a personal_sign signature with V in {27, 28}
func (s *KeySigner) SignText(msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// TextHash returns the EIP-191 personal message hash
func TextHash(msg []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(msg))
}

// DecodeSignature decodes a hex signature; the 0x prefix is optional
func DecodeSignature(sig string) ([]byte, error) {
	b, err := hexutil.Decode("0x" + trim0x(sig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return b, nil
}

// RecoverAddress recovers the signer of an EIP-191 personal message
func RecoverAddress(msg []byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes", ErrMalformedSignature, SignatureLength)
	}

	// Wallets emit V as 27/28
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash(msg), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// VerifySignatureAgainstAddress reports whether sig over msg was made by expected
func VerifySignatureAgainstAddress(msg []byte, sig []byte, expected common.Address) (bool, error) {
	recovered, err := RecoverAddress(msg, sig)
	if err != nil {
		return false, err
	}
	return recovered == expected, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
