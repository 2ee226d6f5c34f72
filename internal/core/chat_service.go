package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/influencerconnect/chat-server/internal/store"
	"github.com/influencerconnect/chat-server/internal/utils"
)

type ChatService struct {
	dbStore store.Store
}

func NewChatService(db store.Store) *ChatService {
	return &ChatService{dbStore: db}
}

// ChatSummary is a chat as seen by one of its participants.
type ChatSummary struct {
	*store.Chat
	// OtherUser is nil when the other participant no longer resolves.
	OtherUser *store.User `json:"other_user"`
}

// GetOrCreateChat returns the chat between userA and userB, creating it on
// first use. Argument order does not matter, and concurrent callers for the
// same pair all get the same chat.
func (s *ChatService) GetOrCreateChat(ctx context.Context, userA, userB string) (*store.Chat, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("%w: both participant ids are required", ErrValidation)
	}
	if userA == userB {
		return nil, fmt.Errorf("%w: a chat needs two distinct participants", ErrValidation)
	}
	for _, id := range []string{userA, userB} {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: malformed user id %q", ErrValidation, id)
		}
	}
	first, second := utils.CanonicalPair(userA, userB)

	chat, err := s.dbStore.GetChatByParticipants(ctx, first, second)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up chat: %v", ErrUnavailable, err)
	}
	if chat != nil {
		return chat, nil
	}

	// Lenient check: one resolvable participant is enough to open the chat.
	users, err := s.dbStore.GetUsersByIDs(ctx, []string{first, second})
	if err != nil {
		return nil, fmt.Errorf("%w: verifying participants: %v", ErrUnavailable, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: neither participant exists", ErrNotFound)
	}
	if len(users) == 1 {
		log.Printf("Opening chat with only one verified participant (%s)", users[0].ID)
	}

	now := time.Now().UTC()
	chat = &store.Chat{UserA: first, UserB: second, CreatedAt: now, UpdatedAt: now}
	err = s.dbStore.CreateChat(ctx, chat)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost the race to another creator; theirs is the chat.
		existing, getErr := s.dbStore.GetChatByParticipants(ctx, first, second)
		if getErr != nil {
			return nil, fmt.Errorf("%w: re-fetching chat after conflict: %v", ErrUnavailable, getErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: chat for %s/%s conflicted but could not be found", ErrConflict, first, second)
		}
		return existing, nil
	}
	if errors.Is(err, store.ErrInvalidID) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: creating chat: %v", ErrUnavailable, err)
	}
	log.Printf("Created chat %s between %s and %s", chat.ID, first, second)
	return chat, nil
}

// GetChat fetches a chat by id, failing with ErrNotFound when it is absent.
func (s *ChatService) GetChat(ctx context.Context, chatID string) (*store.Chat, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: chat id is required", ErrValidation)
	}
	chat, err := s.dbStore.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting chat: %v", ErrUnavailable, err)
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: chat %s", ErrNotFound, chatID)
	}
	return chat, nil
}

// RequireParticipant fetches the chat and checks that userID belongs to it.
func (s *ChatService) RequireParticipant(ctx context.Context, chatID, userID string) (*store.Chat, error) {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: user %s is not in chat %s", ErrForbidden, userID, chatID)
	}
	return chat, nil
}

// ListUserChats returns the user's chats, most recently active first, each
// with the other participant's profile.
func (s *ChatService) ListUserChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	chats, err := s.dbStore.GetChatsByUserID(ctx, userID)
	if err != nil {
		return []ChatSummary{}, fmt.Errorf("%w: listing chats: %v", ErrUnavailable, err)
	}

	otherIDs := make([]string, 0, len(chats))
	for i := range chats {
		otherIDs = append(otherIDs, chats[i].OtherParticipant(userID))
	}
	others, err := s.dbStore.GetUsersByIDs(ctx, otherIDs)
	if err != nil {
		return []ChatSummary{}, fmt.Errorf("%w: loading chat participants: %v", ErrUnavailable, err)
	}
	byID := make(map[string]*store.User, len(others))
	for i := range others {
		byID[others[i].ID] = &others[i]
	}

	summaries := make([]ChatSummary, len(chats))
	for i := range chats {
		summaries[i] = ChatSummary{Chat: &chats[i], OtherUser: byID[chats[i].OtherParticipant(userID)]}
	}
	return summaries, nil
}
