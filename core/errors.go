package core

import (
	"errors"
	"fmt"
)

var (
	ErrNonceMismatch      = errors.New("invalid nonce")
	ErrVerificationFailed = errors.New("siwe verification failed")
	ErrInternal           = errors.New("internal server error")

	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidMessage   = errors.New("invalid siwe message")

	ErrWorldIDRejected = errors.New("world id verification failed")
)

// ErrorKind classifies failures of the sign-in handshake
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNonceMismatch
	KindVerificationFailure
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNonceMismatch:
		return "nonce_mismatch"
	case KindVerificationFailure:
		return "verification_failure"
	default:
		return "internal"
	}
}

// VerificationError carries the reason a SIWE verifier rejected a payload
type VerificationError struct {
	Reason string
	Err    error
}

// NewVerificationError wraps a verifier error, keeping its message as the reason
func NewVerificationError(err error) *VerificationError {
	return &VerificationError{Reason: err.Error(), Err: err}
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrVerificationFailed, e.Reason)
}

func (e *VerificationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrVerificationFailed}
	}
	return []error{ErrVerificationFailed, e.Err}
}

// KindOf maps an error returned by the auth service to its kind
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrVerificationFailed):
		return KindVerificationFailure
	case errors.Is(err, ErrNonceMismatch):
		return KindNonceMismatch
	default:
		return KindInternal
	}
}
