package trusttag

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSignedIn is returned when an operation needs a signed-in account
	ErrNotSignedIn = errors.New("not signed in")

	// ErrEmptyNonce is returned when the server answers without a nonce
	ErrEmptyNonce = errors.New("server returned an empty nonce")
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// IsInvalidNonce reports whether the server rejected the nonce binding
func IsInvalidNonce(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Message == "Invalid nonce"
}
