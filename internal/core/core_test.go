package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/influencerconnect/chat-server/internal/notify"
	"github.com/influencerconnect/chat-server/internal/store"
)

var errStoreDown = errors.New("connection refused")

type testEnv struct {
	db        *store.SQLiteStore
	broker    *notify.MemoryBroker
	directory *DirectoryService
	search    *SearchService
	chats     *ChatService
	messages  *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	broker := notify.NewMemoryBroker()
	t.Cleanup(func() {
		broker.Close()
		db.Close()
	})
	return &testEnv{
		db:        db,
		broker:    broker,
		directory: NewDirectoryService(db),
		search:    NewSearchService(db, false),
		chats:     NewChatService(db),
		messages:  NewMessageService(db, broker),
	}
}

// addUser inserts a user directly, bypassing signup validation and hashing.
func addUser(t *testing.T, db store.Store, u store.User) *store.User {
	t.Helper()
	if u.Email == "" {
		u.Email = u.Username + "@example.com"
	}
	if u.Role == "" {
		u.Role = store.RoleUser
	}
	require.NoError(t, db.CreateUser(context.Background(), &u))
	return &u
}

// faultyStore wraps a Store and fails selected operations.
type faultyStore struct {
	store.Store
	failSearch   bool
	failList     bool
	failMessages bool
	failTouch    bool
	failPing     bool
	// rejectIDs makes writes fail the way a typed-id adapter does.
	rejectIDs bool
	// staleLookups makes the next n GetChatByParticipants calls miss.
	staleLookups int
}

func (f *faultyStore) SearchUserCandidates(ctx context.Context, term, excludeID string) ([]store.User, error) {
	if f.failSearch {
		return nil, errStoreDown
	}
	return f.Store.SearchUserCandidates(ctx, term, excludeID)
}

func (f *faultyStore) ListUsers(ctx context.Context, excludeID string, visibleOnly bool, limit int) ([]store.User, error) {
	if f.failList {
		return nil, errStoreDown
	}
	return f.Store.ListUsers(ctx, excludeID, visibleOnly, limit)
}

func (f *faultyStore) GetMessagesByChatID(ctx context.Context, chatID string) ([]store.MessageView, error) {
	if f.failMessages {
		return nil, errStoreDown
	}
	return f.Store.GetMessagesByChatID(ctx, chatID)
}

func (f *faultyStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	if f.failTouch {
		return errStoreDown
	}
	return f.Store.TouchChat(ctx, chatID, at)
}

func (f *faultyStore) GetChatByParticipants(ctx context.Context, userA, userB string) (*store.Chat, error) {
	if f.staleLookups > 0 {
		f.staleLookups--
		return nil, nil
	}
	return f.Store.GetChatByParticipants(ctx, userA, userB)
}

func (f *faultyStore) CreateChat(ctx context.Context, chat *store.Chat) error {
	if f.rejectIDs {
		return fmt.Errorf("%w: chat participants", store.ErrInvalidID)
	}
	return f.Store.CreateChat(ctx, chat)
}

func (f *faultyStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	if f.rejectIDs {
		return fmt.Errorf("%w: message", store.ErrInvalidID)
	}
	return f.Store.CreateMessage(ctx, msg)
}

func (f *faultyStore) Ping(ctx context.Context) error {
	if f.failPing {
		return errStoreDown
	}
	return f.Store.Ping(ctx)
}
