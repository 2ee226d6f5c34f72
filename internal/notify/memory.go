package notify

import (
	"context"
	"sync"
)

type memorySub struct {
	ch   chan Event
	once sync.Once
}

// MemoryBroker fans events out to subscribers inside one process.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

var _ Broker = (*MemoryBroker)(nil)

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for sub := range b.subs[ev.ChatID] {
		select {
		case sub.ch <- ev:
		default:
			// a signal is already pending; the subscriber will re-read anyway
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, chatID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}

	sub := &memorySub{ch: make(chan Event, 1)}
	if b.subs[chatID] == nil {
		b.subs[chatID] = make(map[*memorySub]struct{})
	}
	b.subs[chatID][sub] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(chatID, sub)
	}
	return sub.ch, cancel, nil
}

// remove must be called with b.mu held.
func (b *MemoryBroker) remove(chatID string, sub *memorySub) {
	if set, ok := b.subs[chatID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, chatID)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}

// Subscribers returns the number of live subscriptions on chatID.
func (b *MemoryBroker) Subscribers(chatID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[chatID])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for chatID, set := range b.subs {
		for sub := range set {
			b.remove(chatID, sub)
		}
	}
	return nil
}
