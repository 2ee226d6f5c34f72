package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/influencerconnect/chat-server/internal/auth"
	"github.com/influencerconnect/chat-server/internal/store"
	"github.com/influencerconnect/chat-server/internal/utils"
)

const minPasswordLength = 6

// DirectoryService owns user accounts and profiles.
type DirectoryService struct {
	dbStore store.Store
}

func NewDirectoryService(db store.Store) *DirectoryService {
	return &DirectoryService{dbStore: db}
}

// CheckStore reports whether the user database answers.
func (s *DirectoryService) CheckStore(ctx context.Context) error {
	if err := s.dbStore.Ping(ctx); err != nil {
		return fmt.Errorf("%w: database ping: %v", ErrUnavailable, err)
	}
	return nil
}

type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ProfileUpdate carries the editable profile fields; nil fields are left as they are.
type ProfileUpdate struct {
	Bio         *string            `json:"bio"`
	Avatar      *string            `json:"avatar"`
	Role        *string            `json:"role"`
	SocialLinks *map[string]string `json:"social_links"`
	Interests   *[]string          `json:"interests"`
	Location    *string            `json:"location"`
	IsVisible   *bool              `json:"is_visible"`
}

// DefaultAvatar is the generated avatar URL for a user without one.
func DefaultAvatar(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=random"
}

func normalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case "":
		return store.RoleUser, nil
	case store.RoleUser, store.RoleInfluencer:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
}

func (s *DirectoryService) Signup(ctx context.Context, in SignupInput) (*store.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	role, err := normalizeRole(in.Role)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &store.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
		Avatar:       DefaultAvatar(username),
		SocialLinks:  map[string]string{},
		Interests:    []string{},
		IsVisible:    true,
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("Created user %s (%s)", user.Username, user.ID)
	return user, nil
}

func (s *DirectoryService) createUser(ctx context.Context, user *store.User) error {
	err := s.dbStore.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: username or email already taken", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("%w: creating user: %v", ErrUnavailable, err)
	}
	return nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords both fail with ErrUnauthorized.
func (s *DirectoryService) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	user, err := s.dbStore.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up user: %v", ErrUnavailable, err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return user, nil
}

func (s *DirectoryService) GetUser(ctx context.Context, userID string) (*store.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	user, err := s.dbStore.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting user: %v", ErrUnavailable, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return user, nil
}

func (s *DirectoryService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*store.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Bio != nil {
		user.Bio = strings.TrimSpace(*upd.Bio)
	}
	if upd.Avatar != nil {
		user.Avatar = strings.TrimSpace(*upd.Avatar)
		if user.Avatar == "" {
			user.Avatar = DefaultAvatar(user.Username)
		}
	}
	if upd.Role != nil {
		if user.Role, err = normalizeRole(*upd.Role); err != nil {
			return nil, err
		}
	}
	if upd.SocialLinks != nil {
		links := make(map[string]string, len(*upd.SocialLinks))
		for platform, handle := range *upd.SocialLinks {
			platform, handle = strings.ToLower(strings.TrimSpace(platform)), strings.TrimSpace(handle)
			if platform != "" && handle != "" {
				links[platform] = handle
			}
		}
		user.SocialLinks = links
	}
	if upd.Interests != nil {
		user.Interests = utils.UniqueStrings(*upd.Interests)
	}
	if upd.Location != nil {
		user.Location = strings.TrimSpace(*upd.Location)
	}
	if upd.IsVisible != nil {
		user.IsVisible = *upd.IsVisible
	}

	if err := s.dbStore.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("%w: updating profile: %v", ErrUnavailable, err)
	}
	return user, nil
}

// SeedUsers inserts demo users, skipping usernames that already exist. Seeded
// accounts get the given password. It returns how many were created.
func (s *DirectoryService) SeedUsers(ctx context.Context, users []store.User, password string) (int, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("failed to hash seed password: %w", err)
	}

	created := 0
	for i := range users {
		user := users[i]
		existing, err := s.dbStore.GetUserByUsername(ctx, user.Username)
		if err != nil {
			return created, fmt.Errorf("%w: checking seed user %s: %v", ErrUnavailable, user.Username, err)
		}
		if existing != nil {
			log.Printf("Seed user %s already exists, skipping", user.Username)
			continue
		}

		if user.Role, err = normalizeRole(user.Role); err != nil {
			log.Printf("Seed user %s has an invalid role, using %q: %v", user.Username, store.RoleUser, err)
			user.Role = store.RoleUser
		}
		if user.Avatar == "" {
			user.Avatar = DefaultAvatar(user.Username)
		}
		user.Interests = utils.UniqueStrings(user.Interests)
		user.PasswordHash = hashedPassword
		if err := s.createUser(ctx, &user); err != nil {
			log.Printf("Failed to seed user %s: %v", user.Username, err)
			continue
		}
		created++
	}
	return created, nil
}
