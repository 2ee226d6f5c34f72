package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chat:"

// RedisBroker relays events through Redis pub/sub so that every server
// instance sees inserts made by any other.
type RedisBroker struct {
	client *redis.Client

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

var _ Broker = (*RedisBroker)(nil)

// NewRedisBroker parses a redis:// URL and checks the server is reachable.
func NewRedisBroker(ctx context.Context, url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("Connected to redis at %s", opts.Addr)
	return NewRedisBrokerFromClient(client), nil
}

func NewRedisBrokerFromClient(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, subs: make(map[*redis.PubSub]struct{})}
}

func channelName(chatID string) string {
	return channelPrefix + chatID
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(ev.ChatID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event for chat %s: %w", ev.ChatID, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, chatID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, ErrClosed
	}
	b.mu.Unlock()

	pubsub := b.client.Subscribe(ctx, channelName(chatID))
	// Wait for the subscription confirmation so that a publish issued after
	// Subscribe returns is never missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to chat %s: %w", chatID, err)
	}

	b.mu.Lock()
	b.subs[pubsub] = struct{}{}
	b.mu.Unlock()

	out := make(chan Event, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("Dropping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subs, pubsub)
			b.mu.Unlock()
			if err := pubsub.Close(); err != nil {
				log.Printf("Error closing subscription for chat %s: %v", chatID, err)
			}
		})
	}
	return out, cancel, nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*redis.PubSub]struct{})
	b.mu.Unlock()

	for pubsub := range subs {
		pubsub.Close()
	}
	return b.client.Close()
}
