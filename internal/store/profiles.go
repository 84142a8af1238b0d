package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

const profileColumns = "profile_id, username, avatar_url, created_at"

type ProfileUpdate struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type ProfileStore struct {
	db  *remote.Client
	now func() time.Time
}

func NewProfileStore(db *remote.Client) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

// Get fails with a remote.CodeNoRows error when the profile does not exist.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.From(tableProfiles).Select(profileColumns).Eq("profile_id", userID).Single().Get(ctx, &p)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &p, nil
}

// Create inserts a profile with an empty username and avatar.
func (s *ProfileStore) Create(ctx context.Context, userID string) (*domain.Profile, error) {
	row := domain.Profile{
		ProfileID: userID,
		CreatedAt: s.now().UTC(),
	}

	var p domain.Profile
	if err := s.db.From(tableProfiles).Select(profileColumns).Single().Insert(ctx, row, &p); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return &p, nil
}

func (s *ProfileStore) Update(ctx context.Context, userID string, upd ProfileUpdate) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.From(tableProfiles).
		Select(profileColumns).
		Eq("profile_id", userID).
		Single().
		Update(ctx, upd, &p)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return &p, nil
}
