package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/influencerconnect/chat-server/internal/utils"
)

// sqliteDriverName is mattn's driver with the search helpers below registered
// on every connection.
const sqliteDriverName = "sqlite3_chat"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if _, err := conn.Exec("PRAGMA foreign_keys = ON", nil); err != nil {
				return err
			}
			// Built-in LIKE folds ASCII only; these fold the same way the scorer does.
			if err := conn.RegisterFunc("contains_fold", utils.ContainsFold, true); err != nil {
				return err
			}
			return conn.RegisterFunc("interests_contain", interestsContain, true)
		},
	})
}

// interestsContain reports whether any entry of a JSON-encoded interests
// column contains term, ignoring case.
func interestsContain(interestsJSON, term string) bool {
	var interests []string
	if err := json.Unmarshal([]byte(interestsJSON), &interests); err != nil {
		return utils.ContainsFold(interestsJSON, term)
	}
	for _, interest := range interests {
		if utils.ContainsFold(interest, term) {
			return true
		}
	}
	return false
}

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL DEFAULT '',
        bio TEXT NOT NULL DEFAULT '',
        avatar TEXT NOT NULL DEFAULT '',
        role TEXT NOT NULL DEFAULT 'user',
        followers INTEGER NOT NULL DEFAULT 0 CHECK (followers >= 0),
        following INTEGER NOT NULL DEFAULT 0 CHECK (following >= 0),
        social_links TEXT NOT NULL DEFAULT '{}', -- JSON object
        interests TEXT NOT NULL DEFAULT '[]', -- JSON array
        location TEXT NOT NULL DEFAULT '',
        is_visible BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_users_username ON users (username);

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_a TEXT NOT NULL,
        user_b TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        CHECK (user_a < user_b),
        UNIQUE (user_a, user_b)
    );
    CREATE INDEX IF NOT EXISTS idx_chats_user_a ON chats (user_a);
    CREATE INDEX IF NOT EXISTS idx_chats_user_b ON chats (user_b);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        sender_id TEXT NOT NULL,
        content TEXT NOT NULL CHECK (length(trim(content)) > 0),
        created_at DATETIME NOT NULL,
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE
    );
    CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages (chat_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// translateError maps driver-level unique violations onto ErrDuplicate.
func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// User methods

const userColumns = "id, username, email, password_hash, bio, avatar, role, followers, following, social_links, interests, location, is_visible, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var user User
	var socialLinksJSON, interestsJSON string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Bio, &user.Avatar,
		&user.Role, &user.Followers, &user.Following, &socialLinksJSON, &interestsJSON, &user.Location,
		&user.IsVisible, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(socialLinksJSON), &user.SocialLinks); err != nil {
		return nil, fmt.Errorf("failed to decode social_links for user %s: %w", user.ID, err)
	}
	if err := json.Unmarshal([]byte(interestsJSON), &user.Interests); err != nil {
		return nil, fmt.Errorf("failed to decode interests for user %s: %w", user.ID, err)
	}
	return &user, nil
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func encodeProfileJSON(user *User) (string, string, error) {
	socialLinks := user.SocialLinks
	if socialLinks == nil {
		socialLinks = map[string]string{}
	}
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}
	socialLinksJSON, err := json.Marshal(socialLinks)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal social_links: %w", err)
	}
	interestsJSON, err := json.Marshal(interests)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal interests: %w", err)
	}
	return string(socialLinksJSON), string(interestsJSON), nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	socialLinksJSON, interestsJSON, err := encodeProfileJSON(user)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.Bio, user.Avatar, user.Role,
		user.Followers, user.Following, socialLinksJSON, interestsJSON, user.Location, user.IsVisible,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateError(err))
	}
	return nil
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders+")", args...)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()
	socialLinksJSON, interestsJSON, err := encodeProfileJSON(user)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users SET username = ?, email = ?, bio = ?, avatar = ?, role = ?,
        social_links = ?, interests = ?, location = ?, is_visible = ?, updated_at = ? WHERE id = ?`,
		user.Username, user.Email, user.Bio, user.Avatar, user.Role, socialLinksJSON, interestsJSON,
		user.Location, user.IsVisible, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to execute user update: %w", translateError(err))
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user %s not found, profile not updated", user.ID)
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context, excludeID string, visibleOnly bool, limit int) ([]User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id <> ?"
	if visibleOnly {
		query += " AND is_visible = TRUE"
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	return s.queryUsers(ctx, query, excludeID, limit)
}

func (s *SQLiteStore) SearchUserCandidates(ctx context.Context, term, excludeID string) ([]User, error) {
	query := "SELECT " + userColumns + ` FROM users
        WHERE id <> ? AND is_visible = TRUE
          AND (contains_fold(username, ?) OR contains_fold(bio, ?) OR contains_fold(role, ?) OR interests_contain(interests, ?))
        ORDER BY created_at DESC`
	return s.queryUsers(ctx, query, excludeID, term, term, term, term)
}

// Chat methods

func (s *SQLiteStore) CreateChat(ctx context.Context, chat *Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO chats (id, user_a, user_b, created_at, updated_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chat insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, chat.ID, chat.UserA, chat.UserB, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute chat insert: %w", translateError(err))
	}
	chat.fillParticipants()
	return nil
}

func (s *SQLiteStore) getChat(ctx context.Context, where string, args ...any) (*Chat, error) {
	var chat Chat
	err := s.db.QueryRowContext(ctx, "SELECT id, user_a, user_b, created_at, updated_at FROM chats WHERE "+where, args...).
		Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	chat.fillParticipants()
	return &chat, nil
}

func (s *SQLiteStore) GetChatByID(ctx context.Context, chatID string) (*Chat, error) {
	return s.getChat(ctx, "id = ?", chatID)
}

func (s *SQLiteStore) GetChatByParticipants(ctx context.Context, userA, userB string) (*Chat, error) {
	return s.getChat(ctx, "user_a = ? AND user_b = ?", userA, userB)
}

func (s *SQLiteStore) GetChatsByUserID(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_a, user_b, created_at, updated_at FROM chats WHERE user_a = ? OR user_b = ? ORDER BY updated_at DESC", userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chat.fillParticipants()
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLiteStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ?", at, chatID)
	if err != nil {
		return fmt.Errorf("failed to execute chat timestamp update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat %s not found, timestamp not updated", chatID)
	}
	return nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString() // Ensure ID is set
	}

	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO messages (id, chat_id, sender_id, content, created_at, is_read) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.CreatedAt, msg.IsRead)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", translateError(err))
	}
	return nil
}

func (s *SQLiteStore) GetMessagesByChatID(ctx context.Context, chatID string) ([]MessageView, error) {
	query := `
        SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at, m.is_read,
               COALESCE(u.username, ''), COALESCE(u.avatar, ''), u.id IS NOT NULL
        FROM messages m
        LEFT JOIN users u ON u.id = m.sender_id
        WHERE m.chat_id = ?
        ORDER BY m.created_at ASC, m.rowid ASC
    `
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []MessageView{}
	for rows.Next() {
		var view MessageView
		var senderKnown bool
		if err := rows.Scan(&view.ID, &view.ChatID, &view.SenderID, &view.Content, &view.CreatedAt, &view.IsRead,
			&view.Sender.Username, &view.Sender.Avatar, &senderKnown); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		view.Sender.ID = view.SenderID
		if !senderKnown {
			view.Sender.Username = UnknownSenderName
		}
		messages = append(messages, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}
