// Package events publishes assistant state changes for downstream consumers
// (analytics, notification workers). Publishing is always best effort.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	CartUpdated       Type = "cart.updated"
	CheckoutStarted   Type = "checkout.started"
	CheckoutCancelled Type = "checkout.cancelled"
	OrderCompleted    Type = "order.completed"
	OrderFailed       Type = "order.failed"
	ConversationReset Type = "conversation.reset"
)

type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	ClientID   string         `json:"clientId"`
	SessionID  string         `json:"sessionId,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(typ Type, clientID string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		ClientID:   clientID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type nopPublisher struct{}

// NewNopPublisher drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }
