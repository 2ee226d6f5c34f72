// Package notify carries "a message was inserted into chat X" signals from
// writers to subscribers. Signals carry no payload beyond identifiers;
// subscribers re-read the store when they receive one.
package notify

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("broker closed")

type Event struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// Broker is a per-chat change feed. Delivery is best effort and coalescing:
// a slow subscriber may see fewer events than were published, but never zero
// after a publish that followed its Subscribe.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers for events on chatID. The returned cancel func is
	// idempotent and closes the channel.
	Subscribe(ctx context.Context, chatID string) (<-chan Event, func(), error)
	Close() error
}
