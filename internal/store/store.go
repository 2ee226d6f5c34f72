package store

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned when an insert hits a unique constraint
// (username, email, or a chat's participant pair).
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidID is returned by adapters with typed id columns when an id to be
// written is malformed.
var ErrInvalidID = errors.New("malformed id")

// Store is the data-access contract shared by the SQLite and Postgres adapters.
// Point lookups return (nil, nil) when the row does not exist.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]User, error)
	UpdateUser(ctx context.Context, user *User) error

	// ListUsers returns users other than excludeID, newest first.
	ListUsers(ctx context.Context, excludeID string, visibleOnly bool, limit int) ([]User, error)
	// SearchUserCandidates returns visible users other than excludeID whose
	// username, bio, role or interests may contain term. Callers re-check matches.
	SearchUserCandidates(ctx context.Context, term, excludeID string) ([]User, error)

	CreateChat(ctx context.Context, chat *Chat) error
	GetChatByID(ctx context.Context, chatID string) (*Chat, error)
	GetChatByParticipants(ctx context.Context, userA, userB string) (*Chat, error)
	GetChatsByUserID(ctx context.Context, userID string) ([]Chat, error)
	TouchChat(ctx context.Context, chatID string, at time.Time) error

	CreateMessage(ctx context.Context, msg *Message) error
	// GetMessagesByChatID returns the chat's messages oldest first with sender info joined.
	GetMessagesByChatID(ctx context.Context, chatID string) ([]MessageView, error)

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	Close() error
}
