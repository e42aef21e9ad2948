package core

import "time"

// Nonce is a single-use token handed to a client before it signs a SIWE message
type Nonce struct {
	Value     string    // 32 alphanumeric characters
	IssuedAt  time.Time // When the nonce was issued
	ExpiresAt time.Time // When the nonce stops being accepted
}

// SiwePayload is the wallet auth success payload produced by MiniKit
type SiwePayload struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Address   string `json:"address"`
	Version   int    `json:"version"`
}

// CompletionRequest pairs a signed payload with the nonce the client was issued
type CompletionRequest struct {
	Payload SiwePayload `json:"payload"`
	Nonce   string      `json:"nonce"`
}

// SiweMessage holds the fields of a parsed EIP-4361 message
type SiweMessage struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime *time.Time
	NotBefore      *time.Time
	RequestID      string
	Resources      []string
}

// VerifyResult is what a SIWE verifier reports for a payload
type VerifyResult struct {
	IsValid bool
	Data    *SiweMessage
}

// VerificationResult is the outcome of a completed sign-in
type VerificationResult struct {
	IsValid bool
	Address string
	Session *Session
	Token   string
}

// Session represents an authenticated wallet session
type Session struct {
	ID        string    // Unique session identifier
	Address   string    // Wallet address, EIP-55 checksummed when it is a full hex address
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session token expires
}

// WorldIDProof is a World ID zero-knowledge proof as produced by MiniKit
type WorldIDProof struct {
	NullifierHash     string `json:"nullifier_hash"`
	Proof             string `json:"proof"`
	MerkleRoot        string `json:"merkle_root"`
	VerificationLevel string `json:"verification_level"`
	Action            string `json:"action"`
	SignalHash        string `json:"signal_hash,omitempty"`
}
