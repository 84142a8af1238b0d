package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

type MockAuth struct {
	mu        sync.Mutex
	listeners map[int]remote.AuthStateListener
	nextID    int

	SignInSession  *domain.Session
	SignInErr      error
	SignUpUser     *domain.User
	SignUpSession  *domain.Session
	SignUpErr      error
	SignOutErr     error
	RestoreSession *domain.Session
	RestoreErr     error
	RefreshSession *domain.Session
	RefreshErr     error

	// Block, when set, holds SignIn until it is closed. Entered is closed
	// once SignIn is waiting.
	Block   chan struct{}
	Entered chan struct{}

	// RestoreBlock and RestoreEntered do the same for Restore.
	RestoreBlock   chan struct{}
	RestoreEntered chan struct{}
	RestoreCalls   atomic.Int32
}

func NewMockAuth() *MockAuth {
	return &MockAuth{listeners: map[int]remote.AuthStateListener{}}
}

func (m *MockAuth) emit(ctx context.Context, e remote.AuthEvent, s *domain.Session) {
	m.mu.Lock()
	ls := make([]remote.AuthStateListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.mu.Unlock()
	for _, l := range ls {
		l(ctx, e, s)
	}
}

func (m *MockAuth) SignUp(ctx context.Context, _, _ string) (*domain.User, *domain.Session, error) {
	if m.SignUpErr != nil {
		return nil, nil, m.SignUpErr
	}
	if m.SignUpSession != nil {
		m.emit(ctx, remote.EventSignedIn, m.SignUpSession)
	}
	return m.SignUpUser, m.SignUpSession, nil
}

func (m *MockAuth) SignIn(ctx context.Context, _, _ string) (*domain.Session, error) {
	if m.Block != nil {
		close(m.Entered)
		<-m.Block
	}
	if m.SignInErr != nil {
		return nil, m.SignInErr
	}
	m.emit(ctx, remote.EventSignedIn, m.SignInSession)
	return m.SignInSession, nil
}

func (m *MockAuth) SignOut(ctx context.Context) error {
	if m.SignOutErr != nil {
		return m.SignOutErr
	}
	m.emit(ctx, remote.EventSignedOut, nil)
	return nil
}

func (m *MockAuth) Restore(ctx context.Context, _ string) (*domain.Session, error) {
	m.RestoreCalls.Add(1)
	if m.RestoreBlock != nil {
		close(m.RestoreEntered)
		<-m.RestoreBlock
	}
	if m.RestoreErr != nil {
		m.emit(ctx, remote.EventInitialSession, nil)
		return nil, m.RestoreErr
	}
	m.emit(ctx, remote.EventInitialSession, m.RestoreSession)
	return m.RestoreSession, nil
}

func (m *MockAuth) Refresh(ctx context.Context) (*domain.Session, error) {
	if m.RefreshErr != nil {
		m.emit(ctx, remote.EventSignedOut, nil)
		return nil, m.RefreshErr
	}
	m.emit(ctx, remote.EventTokenRefreshed, m.RefreshSession)
	return m.RefreshSession, nil
}

func (m *MockAuth) OnAuthStateChange(l remote.AuthStateListener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *MockAuth) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

type MockProfiles struct {
	mu          sync.Mutex
	Profile     *domain.Profile
	GetErr      error
	CreateErr   error
	GetCalls    atomic.Int32
	CreateCalls atomic.Int32
	Tokens      []string
	// CreateHook runs inside Create before it returns.
	CreateHook func()
}

func (m *MockProfiles) SetProfile(p *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profile = p
}

func (m *MockProfiles) SetGetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr = err
}

func (m *MockProfiles) Get(ctx context.Context, _ string) (*domain.Profile, error) {
	m.GetCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tokens = append(m.Tokens, remote.AccessToken(ctx))
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Profile, nil
}

func (m *MockProfiles) Create(_ context.Context, userID string) (*domain.Profile, error) {
	m.CreateCalls.Add(1)
	if m.CreateHook != nil {
		m.CreateHook()
	}
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return &domain.Profile{ProfileID: userID}, nil
}
