package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/remote"
	"github.com/fjod/storefront/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cookieName      = "storefront"
	keyVisitorID    = "visitor_id"
	keyRefreshToken = "refresh_token"

	// RefreshBefore is how close to expiry an access token is renewed.
	RefreshBefore = time.Minute
)

type visitorKey struct{}

// Visitor is the browser session behind a request.
type Visitor struct {
	ID      string
	Manager *session.Manager
	Notes   *notify.Queue

	cookie *sessions.Session
}

// User returns the signed-in user, or nil.
func (v *Visitor) User() *domain.User {
	return v.Manager.User()
}

func visitorFrom(ctx context.Context) *Visitor {
	v, _ := ctx.Value(visitorKey{}).(*Visitor)
	return v
}

// authorized attaches the visitor's current access token to ctx.
func (v *Visitor) authorized(ctx context.Context) context.Context {
	if s := v.Manager.Session(); s != nil {
		return remote.WithAccessToken(ctx, s.AccessToken)
	}
	return ctx
}

// saveCookie stores the current refresh token in the session cookie when it
// changed. It must run before the response status is written.
func (v *Visitor) saveCookie(w http.ResponseWriter, r *http.Request) {
	const op = "Visitor.saveCookie"

	token := ""
	if s := v.Manager.Session(); s != nil {
		token = s.RefreshToken
	}
	stored, _ := v.cookie.Values[keyRefreshToken].(string)
	_, hasID := v.cookie.Values[keyVisitorID]
	if stored == token && hasID {
		return
	}

	v.cookie.Values[keyVisitorID] = v.ID
	if token == "" {
		delete(v.cookie.Values, keyRefreshToken)
	} else {
		v.cookie.Values[keyRefreshToken] = token
	}
	if err := v.cookie.Save(r, w); err != nil {
		slog.With("op", op).ErrorContext(r.Context(), "failed to save session cookie", "error", err)
	}
}

// Sessions resolves the visitor for every request. A new visitor gets a
// fresh id; a known visitor whose manager was evicted is resumed from the
// refresh token in the cookie.
type Sessions struct {
	store    sessions.Store
	registry *session.Registry
	now      func() time.Time
}

func NewSessions(store sessions.Store, registry *session.Registry) *Sessions {
	return &Sessions{store: store, registry: registry, now: time.Now}
}

// NewCookieStore returns the cookie store used for visitor sessions.
func NewCookieStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "Sessions.Middleware"
		log := slog.With("op", op)
		ctx := r.Context()

		cookie, err := s.store.Get(r, cookieName)
		if err != nil {
			// A cookie signed with an old key decodes to a fresh session.
			log.DebugContext(ctx, "discarding unreadable session cookie", "error", err)
		}

		id, _ := cookie.Values[keyVisitorID].(string)
		if id == "" {
			id = uuid.NewString()
		}

		mgr, notes, _ := s.registry.Get(id)
		v := &Visitor{ID: id, Manager: mgr, Notes: notes, cookie: cookie}

		// Requests racing the first one after an eviction wait for its
		// restore instead of seeing a signed-out manager.
		if token, _ := cookie.Values[keyRefreshToken].(string); token != "" {
			if err := mgr.Resume(ctx, token); err != nil {
				log.InfoContext(ctx, "stored session could not be restored", "visitor_id", id)
			}
		}
		if sess := mgr.Session(); sess != nil && sess.ExpiresWithin(s.now(), RefreshBefore) {
			if err := mgr.Refresh(ctx); err != nil {
				log.InfoContext(ctx, "session refresh failed", "visitor_id", id, "error", err)
			}
		}

		v.saveCookie(w, r)

		ctx = context.WithValue(ctx, visitorKey{}, v)
		next.ServeHTTP(w, r.WithContext(v.authorized(ctx)))
	})
}
