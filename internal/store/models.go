package store

import "time"

const (
	RoleUser       = "user"
	RoleInfluencer = "influencer"
)

type User struct {
	ID           string            `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string            `json:"username" gorm:"uniqueIndex;not null"`
	Email        string            `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string            `json:"-" gorm:"not null;default:''"` // Do not expose this in JSON responses
	Bio          string            `json:"bio" gorm:"not null;default:''"`
	Avatar       string            `json:"avatar" gorm:"not null;default:''"`
	Role         string            `json:"role" gorm:"not null;default:'user'"`
	Followers    int               `json:"followers" gorm:"not null;default:0"`
	Following    int               `json:"following" gorm:"not null;default:0"`
	SocialLinks  map[string]string `json:"social_links" gorm:"serializer:json;type:text"`
	Interests    []string          `json:"interests" gorm:"serializer:json;type:text"`
	Location     string            `json:"location" gorm:"not null;default:''"`
	IsVisible    bool              `json:"is_visible" gorm:"not null;index"`
	CreatedAt    time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Chat pairs exactly two users. UserA < UserB always holds, which makes
// the (user_a, user_b) unique key the pair's identity.
type Chat struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserA        string    `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_chats_pair;index"`
	UserB        string    `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_chats_pair;index"`
	Participants []string  `json:"participants" gorm:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasParticipant reports whether userID is one of the chat's two members.
func (c *Chat) HasParticipant(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

// OtherParticipant returns the member that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

func (c *Chat) fillParticipants() {
	c.Participants = []string{c.UserA, c.UserB}
}

type Message struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	ChatID    string    `json:"chat_id" gorm:"type:uuid;not null;index"`
	Chat      *Chat     `json:"-" gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
	SenderID  string    `json:"sender_id" gorm:"type:uuid;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false"`
}

type SenderInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// MessageView is a Message with the sender's display fields joined in.
type MessageView struct {
	Message
	Sender SenderInfo `json:"sender"`
}

// UnknownSenderName is shown when a message's sender no longer resolves.
const UnknownSenderName = "Unknown User"
