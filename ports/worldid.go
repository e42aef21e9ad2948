package ports

import (
	"context"

	"github.com/layer-3/trusttag/core"
)

// WorldIDVerifier checks a World ID proof.
// core.ErrWorldIDRejected means the proof itself was refused.
type WorldIDVerifier interface {
	VerifyProof(ctx context.Context, proof core.WorldIDProof) error
}
