// Package profile assembles the profile page: the user's profile, created
// on first visit, and their order history.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/apperr"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/remote"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/internal/store"
)

const (
	MsgCreateDenied = "Unable to create profile due to permissions. Please contact support."
	MsgUpdated      = "Profile updated successfully!"
)

type Ensurer interface {
	EnsureProfile(ctx context.Context, user domain.User) (*domain.Profile, error)
}

type Updater interface {
	Update(ctx context.Context, userID string, upd store.ProfileUpdate) (*domain.Profile, error)
}

type OrderLister interface {
	UserOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type Page struct {
	Username  string         `json:"username"`
	AvatarURL string         `json:"avatar_url"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Orders    []domain.Order `json:"orders"`
	// RedirectToSignIn is set when the profile could not be created for a
	// reason other than a permission policy.
	RedirectToSignIn bool `json:"redirect_to_sign_in"`
}

type Service struct {
	ensurer  Ensurer
	profiles Updater
	orders   OrderLister
	notifier notify.Notifier
}

func NewService(ensurer Ensurer, profiles Updater, orders OrderLister, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Service{
		ensurer:  ensurer,
		profiles: profiles,
		orders:   orders,
		notifier: notifier,
	}
}

// Load builds the page for user. A nil user yields an empty page.
func (s *Service) Load(ctx context.Context, user *domain.User) Page {
	page := Page{Orders: []domain.Order{}}
	if user == nil {
		return page
	}

	p, err := s.ensurer.EnsureProfile(ctx, *user)
	switch {
	case err == nil:
		page.Username = p.Username
		page.AvatarURL = p.AvatarURL
		if !p.CreatedAt.IsZero() {
			created := p.CreatedAt
			page.CreatedAt = &created
		}
	case errors.Is(err, session.ErrProfileCreate) && remote.IsPolicyDenied(err):
		slog.With("op", "Service.Load").ErrorContext(ctx, "profile creation denied by policy", "user_id", user.ID, "error", err)
		s.notifier.Error(MsgCreateDenied)
	case errors.Is(err, session.ErrProfileCreate):
		apperr.Handle(ctx, s.notifier, err, apperr.Options{Context: "creating profile"})
		page.RedirectToSignIn = true
	default:
		apperr.Handle(ctx, s.notifier, err, apperr.Options{Context: "fetching profile"})
	}

	orders, err := s.orders.UserOrders(ctx, user.ID)
	if err != nil {
		apperr.Handle(ctx, s.notifier, err, apperr.Options{Context: "fetching orders", Quiet: true})
		return page
	}
	page.Orders = orders
	return page
}

// Save updates the username and avatar. It returns nil when the update
// failed; the failure has been reported to the notifier.
func (s *Service) Save(ctx context.Context, user *domain.User, username, avatarURL string) *domain.Profile {
	if user == nil {
		return nil
	}

	p, err := s.profiles.Update(ctx, user.ID, store.ProfileUpdate{Username: username, AvatarURL: avatarURL})
	if err != nil {
		apperr.Handle(ctx, s.notifier, err, apperr.Options{Context: "updating profile"})
		return nil
	}

	s.notifier.Success(MsgUpdated)
	return p
}
