package http

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

const minPasswordLength = 6

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type CredentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	SignedIn bool         `json:"signed_in"`
	Loading  bool         `json:"loading"`
	User     *domain.User `json:"user,omitempty"`
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionResponse(visitorFrom(r.Context())))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	v := visitorFrom(r.Context())

	if _, err := v.Manager.SignUp(r.Context(), creds.Email, creds.Password); err != nil {
		respondAuthError(w, err, "sign_up_failed")
		return
	}

	v.saveCookie(w, r)
	respondJSON(w, http.StatusCreated, sessionResponse(v))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	v := visitorFrom(r.Context())

	if _, err := v.Manager.SignIn(r.Context(), creds.Email, creds.Password); err != nil {
		respondAuthError(w, err, "invalid_credentials")
		return
	}

	v.saveCookie(w, r)
	respondJSON(w, http.StatusOK, sessionResponse(v))
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	v := visitorFrom(r.Context())

	if err := v.Manager.SignOut(r.Context()); err != nil {
		respondRemoteError(w, err)
		return
	}

	v.saveCookie(w, r)
	respondJSON(w, http.StatusOK, sessionResponse(v))
}

// Notifications drains the visitor's pending toasts.
func (h *AuthHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, orEmpty(visitorFrom(r.Context()).Notes.Drain()))
}

func sessionResponse(v *Visitor) SessionResponse {
	user := v.User()
	return SessionResponse{
		SignedIn: user != nil,
		Loading:  v.Manager.Loading(),
		User:     user,
	}
}

func readCredentials(w http.ResponseWriter, r *http.Request) (CredentialsDTO, bool) {
	var creds CredentialsDTO
	if !decodeJSON(w, r, &creds) {
		return creds, false
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if _, err := mail.ParseAddress(creds.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_email", "a valid email is required")
		return creds, false
	}
	if len(creds.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "invalid_password", "password must be at least 6 characters")
		return creds, false
	}
	return creds, true
}

// respondAuthError answers a rejected sign in or sign up with the message of
// the auth service.
func respondAuthError(w http.ResponseWriter, err error, code string) {
	var rerr *remote.Error
	if errors.As(err, &rerr) && rerr.Status >= 400 && rerr.Status < 500 {
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: rerr.Message, Code: code, Details: rerr.Code})
		return
	}
	respondRemoteError(w, err)
}
