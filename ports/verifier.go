package ports

import (
	"context"

	"github.com/layer-3/trusttag/core"
)

// SiweVerifier checks a signed SIWE payload against the nonce it must embed.
// A non-nil error means the payload was rejected; its message is shown to the caller.
type SiweVerifier interface {
	Verify(ctx context.Context, payload core.SiwePayload, nonce string) (*core.VerifyResult, error)
}
