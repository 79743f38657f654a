package events

import (
	"context"
	"time"
)

const (
	TypeCartItemAdded       = "cart.item.added"
	TypeCartItemUpdated     = "cart.item.updated"
	TypeCartItemRemoved     = "cart.item.removed"
	TypeCartCleared         = "cart.cleared"
	TypeWishlistItemAdded   = "wishlist.item.added"
	TypeWishlistItemRemoved = "wishlist.item.removed"
	TypeOrderPlaced         = "order.placed"
)

type Event struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers domain events. Callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type sessionPublisher struct {
	next      Publisher
	sessionID string
}

// ForSession stamps every event with sessionID and a timestamp when missing.
func ForSession(p Publisher, sessionID string) Publisher {
	if p == nil {
		p = NopPublisher{}
	}
	return &sessionPublisher{next: p, sessionID: sessionID}
}

func (s *sessionPublisher) Publish(ctx context.Context, e Event) error {
	if e.SessionID == "" {
		e.SessionID = s.sessionID
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return s.next.Publish(ctx, e)
}
