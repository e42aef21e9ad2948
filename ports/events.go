package ports

import (
	"context"

	"github.com/layer-3/trusttag/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishSignIn(ctx context.Context, session *core.Session) error
	PublishSignOut(ctx context.Context, session *core.Session) error
}
