package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/influencerconnect/chat-server/internal/store"
)

// MessageUpdate is one delivery to a subscriber: the chat's full message
// list, oldest first. When the refresh failed, Err is set and Messages is empty.
type MessageUpdate struct {
	Messages []store.MessageView
	Err      error
}

// Subscription is a live feed of a chat's messages. It starts Active and
// becomes Cancelled, permanently, on the first Cancel.
type Subscription struct {
	ChatID string

	cancelled   atomic.Bool
	once        sync.Once
	stop        context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

// Cancel detaches the subscription from the change feed. Only the first call
// has an effect. It does not wait for an in-flight refresh, so it is safe to
// call from inside the update callback; use Done to wait.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancelled.Store(true)
		s.stop()
		s.unsubscribe()
	})
}

// Active reports whether Cancel has not been called yet.
func (s *Subscription) Active() bool {
	return !s.cancelled.Load()
}

// Done is closed once the delivery loop has exited, either after Cancel or
// because the change feed went away.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
