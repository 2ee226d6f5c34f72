package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s Store, username string, visible bool, createdAt time.Time) *User {
	t.Helper()
	u := &User{
		Username:  username,
		Email:     username + "@example.com",
		Role:      RoleUser,
		IsVisible: visible,
		CreatedAt: createdAt,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestSQLiteUserRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	u := &User{
		Username:    "fashion_influencer",
		Email:       "fashion@example.com",
		Role:        RoleInfluencer,
		Bio:         "Fashion and lifestyle blogger",
		SocialLinks: map[string]string{"instagram": "@fashion"},
		Interests:   []string{"fashion", "travel"},
		IsVisible:   true,
	}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, map[string]string{"instagram": "@fashion"}, got.SocialLinks)
	assert.Equal(t, []string{"fashion", "travel"}, got.Interests)
	assert.True(t, got.IsVisible)
	assert.Equal(t, 0, got.Followers)

	byName, err := s.GetUserByUsername(ctx, "fashion_influencer")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	missing, err := s.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.Bio = "updated"
	got.IsVisible = false
	require.NoError(t, s.UpdateUser(ctx, got))
	reloaded, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", reloaded.Bio)
	assert.False(t, reloaded.IsVisible)
}

func TestSQLiteDuplicateUser(t *testing.T) {
	s := newTestSQLiteStore(t)
	createTestUser(t, s, "alice", true, time.Time{})

	err := s.CreateUser(context.Background(), &User{Username: "alice", Email: "other@example.com", Role: RoleUser})
	assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)

	err = s.CreateUser(context.Background(), &User{Username: "alice2", Email: "alice@example.com", Role: RoleUser})
	assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
}

func TestSQLiteListUsersOrderAndVisibility(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	me := createTestUser(t, s, "me", true, base)
	older := createTestUser(t, s, "older", true, base.Add(time.Minute))
	hidden := createTestUser(t, s, "hidden", false, base.Add(2*time.Minute))
	newer := createTestUser(t, s, "newer", true, base.Add(3*time.Minute))

	visible, err := s.ListUsers(ctx, me.ID, true, 20)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, newer.ID, visible[0].ID)
	assert.Equal(t, older.ID, visible[1].ID)

	all, err := s.ListUsers(ctx, me.ID, false, 20)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, hidden.ID, all[1].ID)

	limited, err := s.ListUsers(ctx, me.ID, false, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteSearchUserCandidates(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	me := createTestUser(t, s, "tech_me", true, time.Time{})
	reviewer := createTestUser(t, s, "tech_reviewer", true, time.Time{})
	createTestUser(t, s, "tech_hidden", false, time.Time{})
	gadgets := &User{Username: "gadget_fan", Email: "g@example.com", Role: RoleUser, Bio: "love TECH gadgets", IsVisible: true}
	require.NoError(t, s.CreateUser(ctx, gadgets))
	interested := &User{Username: "someone", Email: "s@example.com", Role: RoleUser, Interests: []string{"Technology"}, IsVisible: true}
	require.NoError(t, s.CreateUser(ctx, interested))
	createTestUser(t, s, "unrelated", true, time.Time{})

	users, err := s.SearchUserCandidates(ctx, "tech", me.ID)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, u := range users {
		ids[u.ID] = true
	}
	assert.Len(t, users, 3)
	assert.True(t, ids[reviewer.ID])
	assert.True(t, ids[gadgets.ID])
	assert.True(t, ids[interested.ID])

	wildcard, err := s.SearchUserCandidates(ctx, "%", me.ID)
	require.NoError(t, err)
	assert.Empty(t, wildcard)
}

func TestSQLiteChatPairIsUnique(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	chat := &Chat{UserA: "a", UserB: "b", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateChat(ctx, chat))
	assert.Equal(t, []string{"a", "b"}, chat.Participants)

	err := s.CreateChat(ctx, &Chat{UserA: "a", UserB: "b", CreatedAt: now, UpdatedAt: now})
	assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)

	found, err := s.GetChatByParticipants(ctx, "a", "b")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, chat.ID, found.ID)

	missing, err := s.GetChatByParticipants(ctx, "b", "c")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteChatsByUserOrderedByActivity(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &Chat{UserA: "a", UserB: "b", CreatedAt: now, UpdatedAt: now}
	second := &Chat{UserA: "a", UserB: "c", CreatedAt: now, UpdatedAt: now.Add(time.Second)}
	require.NoError(t, s.CreateChat(ctx, first))
	require.NoError(t, s.CreateChat(ctx, second))

	chats, err := s.GetChatsByUserID(ctx, "a")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, second.ID, chats[0].ID)

	require.NoError(t, s.TouchChat(ctx, first.ID, now.Add(time.Minute)))
	chats, err = s.GetChatsByUserID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, chats[0].ID)

	assert.Error(t, s.TouchChat(ctx, "missing", now))
}

func TestSQLiteMessagesOrderedWithSender(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createTestUser(t, s, "alice", true, time.Time{})
	chat := &Chat{UserA: alice.ID, UserB: "zzz-ghost", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateChat(ctx, chat))

	require.NoError(t, s.CreateMessage(ctx, &Message{ChatID: chat.ID, SenderID: alice.ID, Content: "hi", CreatedAt: now}))
	require.NoError(t, s.CreateMessage(ctx, &Message{ChatID: chat.ID, SenderID: "zzz-ghost", Content: "hello back", CreatedAt: now.Add(time.Millisecond)}))

	msgs, err := s.GetMessagesByChatID(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "alice", msgs[0].Sender.Username)
	assert.False(t, msgs[0].IsRead)
	assert.Equal(t, "hello back", msgs[1].Content)
	assert.Equal(t, UnknownSenderName, msgs[1].Sender.Username)

	empty, err := s.GetMessagesByChatID(ctx, "no-such-chat")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteMessageRequiresChat(t *testing.T) {
	s := newTestSQLiteStore(t)
	err := s.CreateMessage(context.Background(), &Message{ChatID: "missing", SenderID: "a", Content: "hi", CreatedAt: time.Now().UTC()})
	assert.Error(t, err)
}

func TestSQLiteSearchFoldsUnicodeAndMatchesDecodedInterests(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	musician := &User{Username: "josé_music", Email: "jose@example.com", Role: RoleUser, IsVisible: true}
	require.NoError(t, s.CreateUser(ctx, musician))
	fan := &User{Username: "soul_fan", Email: "soul@example.com", Role: RoleUser, Interests: []string{"R&B", "<jazz>"}, IsVisible: true}
	require.NoError(t, s.CreateUser(ctx, fan))
	teacher := &User{Username: "prof", Email: "prof@example.com", Role: RoleUser, Bio: "École de musique", IsVisible: true}
	require.NoError(t, s.CreateUser(ctx, teacher))

	tests := []struct {
		term string
		want string
	}{
		{"JOSÉ", musician.ID},
		{"josé", musician.ID},
		{"r&b", fan.ID},
		{"<JAZZ>", fan.ID},
		{"école", teacher.ID},
	}
	for _, tt := range tests {
		users, err := s.SearchUserCandidates(ctx, tt.term, "")
		require.NoError(t, err, tt.term)
		require.Len(t, users, 1, tt.term)
		assert.Equal(t, tt.want, users[0].ID, tt.term)
	}

	// JSON syntax of the stored column is not searchable text.
	users, err := s.SearchUserCandidates(ctx, `","`, "")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSQLitePing(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
