// Package session tracks the signed-in identity of one browser session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/remote"
	"golang.org/x/sync/singleflight"
)

var ErrProfileCreate = errors.New("failed to create profile")

const (
	MsgSignedIn      = "Signed in successfully"
	MsgSignInFailed  = "Failed to sign in"
	MsgSignedUp      = "Signed up successfully"
	MsgSignUpFailed  = "Failed to sign up"
	MsgSignedOut     = "Signed out successfully"
	MsgSignOutFailed = "Failed to sign out"
)

// AuthClient is the remote auth API as seen by one browser session.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	Restore(ctx context.Context, refreshToken string) (*domain.Session, error)
	Refresh(ctx context.Context) (*domain.Session, error)
	OnAuthStateChange(l remote.AuthStateListener) func()
}

type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Create(ctx context.Context, userID string) (*domain.Profile, error)
}

type Manager struct {
	auth     AuthClient
	profiles ProfileStore
	notifier notify.Notifier

	mu      sync.RWMutex
	session *domain.Session

	pending     atomic.Int32
	unsubscribe func()
	resumeOnce  sync.Once

	sfg       singleflight.Group
	createdMu sync.Mutex
	created   map[string]*domain.Profile
}

func NewManager(auth AuthClient, profiles ProfileStore, notifier notify.Notifier) *Manager {
	if notifier == nil {
		notifier = notify.Discard
	}
	m := &Manager{
		auth:     auth,
		profiles: profiles,
		notifier: notifier,
		created:  make(map[string]*domain.Profile),
	}
	m.unsubscribe = auth.OnAuthStateChange(m.onAuthStateChange)
	return m
}

// Close stops listening to auth state changes.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Loading reports whether a sign-in, sign-up, sign-out or restore is in flight.
func (m *Manager) Loading() bool {
	return m.pending.Load() > 0
}

// Session returns a copy of the current session, or nil when signed out.
func (m *Manager) Session() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

func (m *Manager) User() *domain.User {
	s := m.Session()
	if s == nil {
		return nil
	}
	return &s.User
}

// SignUp registers a new identity. When the auth service returns a session
// it becomes current through the auth state change.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	const op = "Manager.SignUp"
	done := m.begin()
	defer done()

	user, _, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		slog.With("op", op).ErrorContext(ctx, "sign up failed", "error", err)
		m.notifier.Error(MsgSignUpFailed)
		return nil, fmt.Errorf("sign up: %w", err)
	}

	m.notifier.Success(MsgSignedUp)
	return user, nil
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	const op = "Manager.SignIn"
	done := m.begin()
	defer done()

	sess, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		slog.With("op", op).ErrorContext(ctx, "sign in failed", "error", err)
		m.notifier.Error(MsgSignInFailed)
		return nil, fmt.Errorf("sign in: %w", err)
	}

	m.notifier.Success(MsgSignedIn)
	return sess, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	const op = "Manager.SignOut"
	done := m.begin()
	defer done()

	if err := m.auth.SignOut(ctx); err != nil {
		slog.With("op", op).ErrorContext(ctx, "sign out failed", "error", err)
		m.notifier.Error(MsgSignOutFailed)
		return fmt.Errorf("sign out: %w", err)
	}

	m.notifier.Success(MsgSignedOut)
	return nil
}

// Restore resumes a session from a stored refresh token. An empty token
// resolves to the signed-out state.
func (m *Manager) Restore(ctx context.Context, refreshToken string) error {
	const op = "Manager.Restore"
	done := m.begin()
	defer done()

	if _, err := m.auth.Restore(ctx, refreshToken); err != nil {
		slog.With("op", op).WarnContext(ctx, "session restore failed", "error", err)
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// Resume restores the session from refreshToken the first time it is called
// on a manager that has no session yet. Concurrent callers wait until that
// restore has finished; later calls do nothing.
func (m *Manager) Resume(ctx context.Context, refreshToken string) error {
	var err error
	m.resumeOnce.Do(func() {
		if m.Session() != nil {
			return
		}
		err = m.Restore(ctx, refreshToken)
	})
	return err
}

// Refresh renews the access token. If the auth service rejects the refresh
// the session is cleared.
func (m *Manager) Refresh(ctx context.Context) error {
	if _, err := m.auth.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

// EnsureProfile reads the user's profile and creates a default one when
// none exists or the lookup is denied by policy. Every call reads the store;
// only the profile this manager created is remembered, so a denied or
// lagging read after creation does not create a second one. Concurrent calls
// for one user share a single lookup.
func (m *Manager) EnsureProfile(ctx context.Context, user domain.User) (*domain.Profile, error) {
	v, err, _ := m.sfg.Do(user.ID, func() (any, error) {
		p, err := m.profiles.Get(ctx, user.ID)
		if err == nil && p != nil {
			return p, nil
		}
		if err != nil && !remote.IsNoRows(err) && !remote.IsPolicyDenied(err) {
			return nil, fmt.Errorf("fetching profile: %w", err)
		}

		if p := m.createdProfile(user.ID); p != nil {
			return p, nil
		}
		p, err = m.profiles.Create(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProfileCreate, err)
		}
		m.rememberCreated(user.ID, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Profile), nil
}

func (m *Manager) onAuthStateChange(ctx context.Context, event remote.AuthEvent, sess *domain.Session) {
	const op = "Manager.onAuthStateChange"
	log := slog.With("op", op, "event", string(event))

	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()

	if sess == nil {
		m.forgetProfiles()
		log.DebugContext(ctx, "session cleared")
		return
	}

	ctx = remote.WithAccessToken(ctx, sess.AccessToken)
	if _, err := m.EnsureProfile(ctx, sess.User); err != nil {
		log.ErrorContext(ctx, "ensure profile failed", "user_id", sess.User.ID, "error", err)
	}
}

func (m *Manager) begin() func() {
	m.pending.Add(1)
	return func() { m.pending.Add(-1) }
}

func (m *Manager) createdProfile(userID string) *domain.Profile {
	m.createdMu.Lock()
	defer m.createdMu.Unlock()
	return m.created[userID]
}

func (m *Manager) rememberCreated(userID string, p *domain.Profile) {
	m.createdMu.Lock()
	defer m.createdMu.Unlock()
	m.created[userID] = p
}

func (m *Manager) forgetProfiles() {
	m.createdMu.Lock()
	defer m.createdMu.Unlock()
	clear(m.created)
}
