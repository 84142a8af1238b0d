package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

const authPath = "/auth/v1"

type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthStateListener observes session changes. session is nil after sign-out
// or expiry.
type AuthStateListener func(ctx context.Context, event AuthEvent, session *domain.Session)

var ErrNoSession = errors.New("no active session")

// SessionClient holds the auth session of one browser session and notifies
// listeners whenever it changes.
type SessionClient struct {
	c   *Client
	api gotrue.Client
	now func() time.Time

	mu        sync.Mutex
	session   *domain.Session
	listeners map[int]AuthStateListener
	nextID    int
}

func (c *Client) NewSessionClient() *SessionClient {
	return &SessionClient{
		c:         c,
		api:       gotrue.New("", c.apiKey).WithCustomGoTrueURL(c.baseURL.String() + authPath),
		now:       time.Now,
		listeners: make(map[int]AuthStateListener),
	}
}

func toUser(u types.User) *domain.User {
	if u.ID == uuid.Nil {
		return nil
	}
	return &domain.User{ID: u.ID.String(), Email: u.Email}
}

func toSession(ts types.Session, now time.Time) *domain.Session {
	u := toUser(ts.User)
	if ts.AccessToken == "" || u == nil {
		return nil
	}
	expires := now.Add(time.Duration(ts.ExpiresIn) * time.Second)
	if ts.ExpiresAt > 0 {
		expires = time.Unix(ts.ExpiresAt, 0)
	}
	return &domain.Session{
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		ExpiresAt:    expires,
		User:         *u,
	}
}

// SignUp registers a new identity. The session is nil when the service
// requires email confirmation before the first sign-in.
func (s *SessionClient) SignUp(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	var res *types.SignupResponse
	err := s.call(ctx, "", func(api gotrue.Client) (err error) {
		res, err = api.Signup(types.SignupRequest{Email: email, Password: password})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	sess := toSession(res.Session, s.now())
	if sess != nil {
		s.set(ctx, EventSignedIn, sess)
	}
	return toUser(res.User), sess, nil
}

func (s *SessionClient) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var res *types.TokenResponse
	err := s.call(ctx, "", func(api gotrue.Client) (err error) {
		res, err = api.SignInWithEmailPassword(email, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	sess := toSession(res.Session, s.now())
	if sess == nil {
		return nil, &Error{Status: http.StatusBadGateway, Message: "auth response carried no session"}
	}
	s.set(ctx, EventSignedIn, sess)
	return sess, nil
}

// SignOut revokes the current session. On failure the session is kept.
func (s *SessionClient) SignOut(ctx context.Context) error {
	cur := s.Session()
	if cur == nil {
		s.set(ctx, EventSignedOut, nil)
		return nil
	}
	err := s.call(ctx, cur.AccessToken, func(api gotrue.Client) error {
		return api.Logout()
	})
	if err != nil {
		return err
	}
	s.set(ctx, EventSignedOut, nil)
	return nil
}

// Restore exchanges a stored refresh token for a session and announces the
// result as the initial session.
func (s *SessionClient) Restore(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		s.set(ctx, EventInitialSession, nil)
		return nil, nil
	}
	sess, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.set(ctx, EventInitialSession, nil)
		return nil, err
	}
	s.set(ctx, EventInitialSession, sess)
	return sess, nil
}

// Refresh renews the access token. A rejected refresh token means the
// session expired and it is cleared.
func (s *SessionClient) Refresh(ctx context.Context) (*domain.Session, error) {
	cur := s.Session()
	if cur == nil {
		return nil, ErrNoSession
	}
	sess, err := s.refresh(ctx, cur.RefreshToken)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Status < http.StatusInternalServerError {
			s.set(ctx, EventSignedOut, nil)
		}
		return nil, err
	}
	s.set(ctx, EventTokenRefreshed, sess)
	return sess, nil
}

func (s *SessionClient) refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var res *types.TokenResponse
	err := s.call(ctx, "", func(api gotrue.Client) (err error) {
		res, err = api.RefreshToken(refreshToken)
		return err
	})
	if err != nil {
		return nil, err
	}
	sess := toSession(res.Session, s.now())
	if sess == nil {
		return nil, &Error{Status: http.StatusBadGateway, Message: "auth response carried no session"}
	}
	return sess, nil
}

// Session returns a copy of the current session, or nil.
func (s *SessionClient) Session() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// OnAuthStateChange registers l and returns a function that removes it.
func (s *SessionClient) OnAuthStateChange(l AuthStateListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *SessionClient) set(ctx context.Context, event AuthEvent, sess *domain.Session) {
	s.mu.Lock()
	s.session = sess
	listeners := make([]AuthStateListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		var cp *domain.Session
		if sess != nil {
			v := *sess
			cp = &v
		}
		l(ctx, event, cp)
	}
}

// call runs fn against the auth API behind the circuit breaker. Requests
// carry ctx, and a failed response is reported as *Error.
func (s *SessionClient) call(ctx context.Context, token string, fn func(api gotrue.Client) error) error {
	_, err := s.c.breaker.Execute(func() (*response, error) {
		t := &authTransport{ctx: ctx, base: s.c.http.Transport}
		api := s.api.WithClient(http.Client{Transport: t, Timeout: s.c.http.Timeout})
		if token != "" {
			api = api.WithToken(token)
		}

		err := fn(api)
		switch {
		case err == nil:
			return nil, nil
		case t.failure != nil:
			return nil, t.failure
		case errors.Is(err, types.ErrInvalidTokenRequest):
			return nil, &Error{Status: http.StatusBadRequest, Code: "validation_failed", Message: err.Error()}
		}
		return nil, fmt.Errorf("auth request: %w", err)
	})
	return err
}

// authTransport binds one auth call to its context and keeps the decoded
// error body of a failed response.
type authTransport struct {
	ctx     context.Context
	base    http.RoundTripper
	failure *Error
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if err != nil || resp.StatusCode < http.StatusMultipleChoices {
		return resp, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	t.failure = decodeError(resp.StatusCode, data)
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}
