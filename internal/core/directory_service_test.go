package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/influencerconnect/chat-server/internal/store"
)

func TestSignupAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.directory.Signup(ctx, SignupInput{Username: " alice ", Email: "Alice@Example.com", Password: "wonderland"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, store.RoleUser, user.Role)
	assert.True(t, user.IsVisible)
	assert.Equal(t, DefaultAvatar("alice"), user.Avatar)
	assert.NotEqual(t, "wonderland", user.PasswordHash)

	authed, err := env.directory.Authenticate(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = env.directory.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.directory.Authenticate(ctx, "nobody", "wonderland")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSignupValidationAndConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []SignupInput{
		{Username: "", Email: "a@example.com", Password: "secret1"},
		{Username: "a", Email: "not-an-email", Password: "secret1"},
		{Username: "a", Email: "a@example.com", Password: "short"},
		{Username: "a", Email: "a@example.com", Password: "secret1", Role: "admin"},
	}
	for _, in := range cases {
		_, err := env.directory.Signup(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "input %+v", in)
	}

	_, err := env.directory.Signup(ctx, SignupInput{Username: "bob", Email: "bob@example.com", Password: "secret1", Role: "Influencer"})
	require.NoError(t, err)
	_, err = env.directory.Signup(ctx, SignupInput{Username: "bob", Email: "bob2@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.directory.Signup(ctx, SignupInput{Username: "bobby", Email: "BOB@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, err := env.directory.Signup(ctx, SignupInput{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)

	bio := "  Travel vlogger "
	role := "influencer"
	hidden := false
	links := map[string]string{"Instagram": "@carol", "tiktok": " "}
	interests := []string{"travel", "Travel", " food "}
	updated, err := env.directory.UpdateProfile(ctx, user.ID, ProfileUpdate{
		Bio:         &bio,
		Role:        &role,
		IsVisible:   &hidden,
		SocialLinks: &links,
		Interests:   &interests,
	})
	require.NoError(t, err)
	assert.Equal(t, "Travel vlogger", updated.Bio)
	assert.Equal(t, store.RoleInfluencer, updated.Role)
	assert.False(t, updated.IsVisible)
	assert.Equal(t, map[string]string{"instagram": "@carol"}, updated.SocialLinks)
	assert.Equal(t, []string{"travel", "food"}, updated.Interests)

	reloaded, err := env.directory.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Travel vlogger", reloaded.Bio)
	assert.False(t, reloaded.IsVisible)

	badRole := "admin"
	_, err = env.directory.UpdateProfile(ctx, user.ID, ProfileUpdate{Role: &badRole})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.directory.UpdateProfile(ctx, "missing", ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedUsersSkipsExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	addUser(t, env.db, store.User{Username: "demo_user", IsVisible: true})

	seed := []store.User{
		{Username: "demo_user", Email: "demo@example.com", IsVisible: true},
		{Username: "influencer1", Email: "influencer1@example.com", Role: "influencer", Interests: []string{"fashion", "fashion"}, IsVisible: true},
		{Username: "weird_role", Email: "weird@example.com", Role: "wizard", IsVisible: true},
	}
	created, err := env.directory.SeedUsers(ctx, seed, "demo-password")
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	influencer, err := env.db.GetUserByUsername(ctx, "influencer1")
	require.NoError(t, err)
	require.NotNil(t, influencer)
	assert.Equal(t, store.RoleInfluencer, influencer.Role)
	assert.Equal(t, []string{"fashion"}, influencer.Interests)
	assert.Equal(t, DefaultAvatar("influencer1"), influencer.Avatar)

	_, err = env.directory.Authenticate(ctx, "influencer1", "demo-password")
	require.NoError(t, err)

	again, err := env.directory.SeedUsers(ctx, seed, "demo-password")
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestCheckStore(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.directory.CheckStore(context.Background()))

	down := NewDirectoryService(&faultyStore{Store: env.db, failPing: true})
	assert.ErrorIs(t, down.CheckStore(context.Background()), ErrUnavailable)
}
