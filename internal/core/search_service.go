package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/influencerconnect/chat-server/internal/config"
	"github.com/influencerconnect/chat-server/internal/store"
	"github.com/influencerconnect/chat-server/internal/utils"
)

// SearchLimit caps the number of users returned by a search.
const SearchLimit = 20

const (
	scoreUsernameExact    = 100
	scoreUsernamePrefix   = 50
	scoreUsernameContains = 25
	scoreBio              = 10
	scoreRole             = 15
	scoreInterest         = 20
)

type SearchService struct {
	dbStore store.Store
	// fallbackAllUsers returns invisible users for an empty term when no
	// visible user exists.
	fallbackAllUsers bool
}

func NewSearchService(db store.Store, fallbackAllUsers bool) *SearchService {
	return &SearchService{dbStore: db, fallbackAllUsers: fallbackAllUsers}
}

// SearchUsers ranks the directory against term, leaving out excludeUserID and
// invisible users. An empty term lists the newest users instead. On a store
// failure it returns an empty slice together with an ErrUnavailable error.
func (s *SearchService) SearchUsers(ctx context.Context, term, excludeUserID string) ([]store.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.recentUsers(ctx, excludeUserID)
	}

	candidates, err := s.dbStore.SearchUserCandidates(ctx, term, excludeUserID)
	if err != nil {
		return []store.User{}, fmt.Errorf("%w: searching users: %v", ErrUnavailable, err)
	}

	type scored struct {
		user  store.User
		score int
	}
	results := make([]scored, 0, len(candidates))
	for _, u := range candidates {
		if !u.IsVisible || u.ID == excludeUserID {
			continue
		}
		if score := RelevanceScore(u, term); score > 0 {
			results = append(results, scored{user: u, score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > SearchLimit {
		results = results[:SearchLimit]
	}

	users := make([]store.User, len(results))
	for i, r := range results {
		users[i] = r.user
	}
	config.Debugf("search %q matched %d of %d candidates", term, len(users), len(candidates))
	return users, nil
}

func (s *SearchService) recentUsers(ctx context.Context, excludeUserID string) ([]store.User, error) {
	users, err := s.dbStore.ListUsers(ctx, excludeUserID, true, SearchLimit)
	if err != nil {
		return []store.User{}, fmt.Errorf("%w: listing users: %v", ErrUnavailable, err)
	}
	if len(users) == 0 && s.fallbackAllUsers {
		users, err = s.dbStore.ListUsers(ctx, excludeUserID, false, SearchLimit)
		if err != nil {
			return []store.User{}, fmt.Errorf("%w: listing users: %v", ErrUnavailable, err)
		}
	}
	return users, nil
}

// RelevanceScore is the additive match score of u against term. The username
// contributes only its best tier.
func RelevanceScore(u store.User, term string) int {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return 0
	}

	score := 0
	username := strings.ToLower(u.Username)
	switch {
	case username == term:
		score += scoreUsernameExact
	case strings.HasPrefix(username, term):
		score += scoreUsernamePrefix
	case strings.Contains(username, term):
		score += scoreUsernameContains
	}
	if utils.ContainsFold(u.Bio, term) {
		score += scoreBio
	}
	if utils.ContainsFold(u.Role, term) {
		score += scoreRole
	}
	for _, interest := range u.Interests {
		if utils.ContainsFold(interest, term) {
			score += scoreInterest
			break
		}
	}
	return score
}
