package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/trusttag/core"
)

const (
	TopicSignIn  = "trusttag.signin"
	TopicSignOut = "trusttag.signout"
)

// SessionEvent is the payload of sign-in and sign-out events
type SessionEvent struct {
	Address   string    `json:"address"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishSignIn publishes a sign-in event
func (p *WatermillPublisher) PublishSignIn(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicSignIn, session)
}

// PublishSignOut publishes a sign-out event
func (p *WatermillPublisher) PublishSignOut(ctx context.Context, session *core.Session) error {
	return p.publish(ctx, TopicSignOut, session)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, session *core.Session) error {
	event := SessionEvent{
		Address:   session.Address,
		SessionID: session.ID,
		At:        p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("session_id", session.ID)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
