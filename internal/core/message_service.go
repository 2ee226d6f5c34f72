package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/influencerconnect/chat-server/internal/config"
	"github.com/influencerconnect/chat-server/internal/notify"
	"github.com/influencerconnect/chat-server/internal/store"
)

// errFeedClosed is reported to subscribers whose change feed shut down.
var errFeedClosed = errors.New("change feed closed")

type MessageService struct {
	dbStore store.Store
	broker  notify.Broker
}

func NewMessageService(db store.Store, broker notify.Broker) *MessageService {
	return &MessageService{dbStore: db, broker: broker}
}

// SendMessage stores a message from senderID in chatID. Content is trimmed and
// must not be empty. Bumping the chat's activity time and notifying
// subscribers are best effort and never fail the send.
func (s *MessageService) SendMessage(ctx context.Context, chatID, senderID, content string) (*store.Message, error) {
	chatID, senderID = strings.TrimSpace(chatID), strings.TrimSpace(senderID)
	content = strings.TrimSpace(content)
	switch {
	case chatID == "":
		return nil, fmt.Errorf("%w: chat id is required", ErrValidation)
	case senderID == "":
		return nil, fmt.Errorf("%w: sender id is required", ErrValidation)
	case content == "":
		return nil, fmt.Errorf("%w: message content cannot be empty", ErrValidation)
	}

	chat, err := s.dbStore.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying chat: %v", ErrUnavailable, err)
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: chat %s", ErrNotFound, chatID)
	}

	now := time.Now().UTC()
	msg := &store.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
		IsRead:    false,
	}
	err = s.dbStore.CreateMessage(ctx, msg)
	if errors.Is(err, store.ErrInvalidID) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: storing message: %v", ErrUnavailable, err)
	}

	if err := s.dbStore.TouchChat(ctx, chatID, now); err != nil {
		log.Printf("Failed to update activity time for chat %s: %v", chatID, err)
	}
	if err := s.broker.Publish(ctx, notify.Event{ChatID: chatID, MessageID: msg.ID}); err != nil {
		log.Printf("Failed to notify subscribers of chat %s: %v", chatID, err)
	}
	config.Debugf("stored message %s in chat %s", msg.ID, chatID)
	return msg, nil
}

// GetMessages returns the chat's messages oldest first with sender display
// info. A chat without messages yields an empty slice.
func (s *MessageService) GetMessages(ctx context.Context, chatID string) ([]store.MessageView, error) {
	if strings.TrimSpace(chatID) == "" {
		return []store.MessageView{}, fmt.Errorf("%w: chat id is required", ErrValidation)
	}
	messages, err := s.dbStore.GetMessagesByChatID(ctx, chatID)
	if err != nil {
		return []store.MessageView{}, fmt.Errorf("%w: fetching messages: %v", ErrUnavailable, err)
	}
	return messages, nil
}

// Subscribe delivers the chat's full message list to onUpdate once right
// away and again after every new message in the chat. Deliveries happen on a
// single goroutine, in order. ctx only bounds the registration itself; the
// subscription lives until Cancel.
func (s *MessageService) Subscribe(ctx context.Context, chatID string, onUpdate func(MessageUpdate)) (*Subscription, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: chat id is required", ErrValidation)
	}
	if onUpdate == nil {
		return nil, fmt.Errorf("%w: update callback is required", ErrValidation)
	}

	// Register before the first fetch so no insert can fall between the two.
	events, unsubscribe, err := s.broker.Subscribe(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribing to chat %s: %v", ErrUnavailable, chatID, err)
	}

	loopCtx, stop := context.WithCancel(context.Background())
	sub := &Subscription{
		ChatID:      chatID,
		stop:        stop,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		s.refresh(loopCtx, sub, onUpdate)
		for {
			select {
			case <-loopCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					if sub.Active() {
						onUpdate(MessageUpdate{Messages: []store.MessageView{}, Err: fmt.Errorf("%w: %v", ErrUnavailable, errFeedClosed)})
					}
					return
				}
				s.refresh(loopCtx, sub, onUpdate)
			}
		}
	}()

	config.Debugf("subscribed to chat %s", chatID)
	return sub, nil
}

func (s *MessageService) refresh(ctx context.Context, sub *Subscription, onUpdate func(MessageUpdate)) {
	messages, err := s.GetMessages(ctx, sub.ChatID)
	if !sub.Active() {
		return
	}
	if err != nil {
		log.Printf("Failed to refresh messages for chat %s: %v", sub.ChatID, err)
	}
	onUpdate(MessageUpdate{Messages: messages, Err: err})
}
