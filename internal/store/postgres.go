package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/influencerconnect/chat-server/internal/utils"
)

type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := db.AutoMigrate(&User{}, &Chat{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_users_username ON users (username)").Error; err != nil {
		return nil, fmt.Errorf("failed to create username index: %w", err)
	}
	log.Println("Successfully connected to database")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateGormError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// jsonTextFragment is term as it appears inside a JSON-encoded string, which
// is how the serializer stores interests.
func jsonTextFragment(term string) string {
	encoded, err := json.Marshal(term)
	if err != nil || len(encoded) < 2 {
		return term
	}
	return string(encoded[1 : len(encoded)-1])
}

// first runs query.First and maps a missing row to (false, nil).
func first(query *gorm.DB, dest any) (bool, error) {
	err := query.First(dest).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// User methods

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	if user.SocialLinks == nil {
		user.SocialLinks = map[string]string{}
	}
	if user.Interests == nil {
		user.Interests = []string{}
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", translateGormError(err))
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil // not a uuid, cannot exist
	}
	var user User
	found, err := first(s.db.WithContext(ctx).Where("id = ?", id), &user)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	found, err := first(s.db.WithContext(ctx).Where("username = ?", username), &user)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *PostgresStore) GetUsersByIDs(ctx context.Context, ids []string) ([]User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	users := []User{}
	if len(valid) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", valid).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Select(
		"username", "email", "bio", "avatar", "role", "social_links", "interests", "location", "is_visible", "updated_at",
	).Updates(user)
	if res.Error != nil {
		return fmt.Errorf("failed to execute user update: %w", translateGormError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s not found, profile not updated", user.ID)
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, excludeID string, visibleOnly bool, limit int) ([]User, error) {
	query := s.db.WithContext(ctx).Model(&User{})
	if _, err := uuid.Parse(excludeID); err == nil {
		query = query.Where("id <> ?", excludeID)
	}
	if visibleOnly {
		query = query.Where("is_visible = ?", true)
	}
	users := []User{}
	if err := query.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) SearchUserCandidates(ctx context.Context, term, excludeID string) ([]User, error) {
	pattern := utils.LikePattern(term)
	interestsPattern := utils.LikePattern(jsonTextFragment(term))
	query := s.db.WithContext(ctx).Model(&User{}).Where("is_visible = ?", true)
	if _, err := uuid.Parse(excludeID); err == nil {
		query = query.Where("id <> ?", excludeID)
	}
	query = query.Where(
		"username ILIKE ? OR bio ILIKE ? OR role ILIKE ? OR CAST(interests AS TEXT) ILIKE ?",
		pattern, pattern, pattern, interestsPattern,
	)
	users := []User{}
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// Chat methods

func (s *PostgresStore) CreateChat(ctx context.Context, chat *Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if !validUUIDs(chat.UserA, chat.UserB) {
		return fmt.Errorf("%w: chat participants %s/%s", ErrInvalidID, chat.UserA, chat.UserB)
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_a"}, {Name: "user_b"}}, DoNothing: true}).
		Create(chat)
	if res.Error != nil {
		return fmt.Errorf("failed to execute chat insert: %w", translateGormError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: chat for %s/%s already exists", ErrDuplicate, chat.UserA, chat.UserB)
	}
	chat.fillParticipants()
	return nil
}

func (s *PostgresStore) getChat(query *gorm.DB) (*Chat, error) {
	var chat Chat
	found, err := first(query, &chat)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if !found {
		return nil, nil
	}
	chat.fillParticipants()
	return &chat, nil
}

func (s *PostgresStore) GetChatByID(ctx context.Context, chatID string) (*Chat, error) {
	if _, err := uuid.Parse(chatID); err != nil {
		return nil, nil
	}
	return s.getChat(s.db.WithContext(ctx).Where("id = ?", chatID))
}

func (s *PostgresStore) GetChatByParticipants(ctx context.Context, userA, userB string) (*Chat, error) {
	if !validUUIDs(userA, userB) {
		return nil, nil
	}
	return s.getChat(s.db.WithContext(ctx).Where("user_a = ? AND user_b = ?", userA, userB))
}

func (s *PostgresStore) GetChatsByUserID(ctx context.Context, userID string) ([]Chat, error) {
	chats := []Chat{}
	if !validUUIDs(userID) {
		return chats, nil
	}
	err := s.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	for i := range chats {
		chats[i].fillParticipants()
	}
	return chats, nil
}

func (s *PostgresStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	if !validUUIDs(chatID) {
		return fmt.Errorf("%w: chat %s", ErrInvalidID, chatID)
	}
	res := s.db.WithContext(ctx).Model(&Chat{}).Where("id = ?", chatID).Update("updated_at", at)
	if res.Error != nil {
		return fmt.Errorf("failed to execute chat timestamp update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chat %s not found, timestamp not updated", chatID)
	}
	return nil
}

// Message methods

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if !validUUIDs(msg.ChatID, msg.SenderID) {
		return fmt.Errorf("%w: message chat %s sender %s", ErrInvalidID, msg.ChatID, msg.SenderID)
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to execute message insert: %w", translateGormError(err))
	}
	return nil
}

type messageRow struct {
	Message
	SenderUsername *string
	SenderAvatar   *string
}

func (s *PostgresStore) GetMessagesByChatID(ctx context.Context, chatID string) ([]MessageView, error) {
	messages := []MessageView{}
	if _, err := uuid.Parse(chatID); err != nil {
		return messages, nil
	}

	var rows []messageRow
	err := s.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, users.username AS sender_username, users.avatar AS sender_avatar").
		Joins("LEFT JOIN users ON users.id = messages.sender_id").
		Where("messages.chat_id = ?", chatID).
		Order("messages.created_at ASC, messages.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	for _, row := range rows {
		view := MessageView{Message: row.Message}
		view.Sender.ID = row.SenderID
		view.Sender.Username = UnknownSenderName
		if row.SenderUsername != nil {
			view.Sender.Username = *row.SenderUsername
		}
		if row.SenderAvatar != nil {
			view.Sender.Avatar = *row.SenderAvatar
		}
		messages = append(messages, view)
	}
	return messages, nil
}
