package store

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStore_GetMissing(t *testing.T) {
	backend, db := newFakeBackend(t)
	backend.on(http.MethodGet, "/rest/v1/profiles", reply(http.StatusNotAcceptable, noRowsBody))

	p, err := NewProfileStore(db).Get(context.Background(), "u1")

	assert.Nil(t, p)
	assert.True(t, remote.IsNoRows(err))
	q := backend.recorded()[0].Query
	assert.Equal(t, "eq.u1", q.Get("profile_id"))
	assert.Equal(t, "profile_id,username,avatar_url,created_at", q.Get("select"))
}

func TestProfileStore_CreateDefaults(t *testing.T) {
	backend, db := newFakeBackend(t)
	backend.on(http.MethodPost, "/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request, body string) {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, "u1", got["profile_id"])
		assert.Equal(t, "", got["username"])
		assert.Equal(t, "", got["avatar_url"])
		assert.Equal(t, "2026-03-01T10:00:00Z", got["created_at"])
		respond(w, http.StatusCreated, body)
	})

	s := NewProfileStore(db)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	p, err := s.Create(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", p.ProfileID)
	assert.Empty(t, p.Username)
}

func TestProfileStore_CreateDenied(t *testing.T) {
	backend, db := newFakeBackend(t)
	backend.on(http.MethodPost, "/rest/v1/profiles", reply(http.StatusForbidden, rlsBody))

	_, err := NewProfileStore(db).Create(context.Background(), "u1")

	assert.True(t, remote.IsPolicyDenied(err))
}

func TestProfileStore_Update(t *testing.T) {
	backend, db := newFakeBackend(t)
	backend.on(http.MethodPatch, "/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request, body string) {
		assert.JSONEq(t, `{"username":"ann","avatar_url":"a.png"}`, body)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("profile_id"))
		respond(w, http.StatusOK, `{"profile_id":"u1","username":"ann","avatar_url":"a.png","created_at":"2026-03-01T10:00:00Z"}`)
	})

	p, err := NewProfileStore(db).Update(context.Background(), "u1", ProfileUpdate{Username: "ann", AvatarURL: "a.png"})

	require.NoError(t, err)
	assert.Equal(t, "ann", p.Username)
}
