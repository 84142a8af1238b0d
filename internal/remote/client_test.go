package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "anon-key"

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, APIKey: testKey})
	require.NoError(t, err)
	return c
}

type row struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func TestNewClient_RequiresURLAndKey(t *testing.T) {
	_, err := NewClient(Config{URL: "", APIKey: "k"})
	assert.ErrorIs(t, err, ErrMissingConfig)

	_, err = NewClient(Config{URL: "https://example.test", APIKey: " "})
	assert.ErrorIs(t, err, ErrMissingConfig)

	_, err = NewClient(Config{URL: "not a url", APIKey: "k"})
	assert.Error(t, err)
}

func TestQuery_GetBuildsFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*,category:category_id(name)", q.Get("select"))
		assert.Equal(t, "eq.7", q.Get("category_id"))
		assert.Equal(t, "(title.ilike.*mug*,description.ilike.*mug*)", q.Get("or"))
		assert.Equal(t, "created_at.desc,title.asc", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, testKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))

		_, _ = io.WriteString(w, `[{"id":1,"title":"Mug"}]`)
	})

	var rows []row
	err := c.From("products").
		Select("*, category:category_id ( name )").
		Eq("category_id", 7).
		Or("title.ilike.*mug*,description.ilike.*mug*").
		Order("created_at", false).
		Order("title", true).
		Limit(5).
		Get(context.Background(), &rows)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mug", rows[0].Title)
}

func TestQuery_UsesAccessTokenFromContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, testKey, r.Header.Get("apikey"))
		_, _ = io.WriteString(w, `[]`)
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	var rows []row
	require.NoError(t, c.From("orders").Get(ctx, &rows))
	assert.Empty(t, rows)
}

func TestQuery_SingleNoRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, singleObject, r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = io.WriteString(w, `{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`)
	})

	var r row
	err := c.From("profiles").Eq("profile_id", "u1").Single().Get(context.Background(), &r)

	require.Error(t, err)
	assert.True(t, IsNoRows(err))
	assert.False(t, IsPolicyDenied(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNotAcceptable, re.Status)
	assert.Equal(t, "The result contains 0 rows", re.Details)
	assert.Empty(t, re.Hint)
}

func TestQuery_InsertPolicyDenied(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","details":null,"hint":null,"message":"new row violates row-level security policy for table \"profiles\""}`)
	})

	err := c.From("profiles").Insert(context.Background(), map[string]string{"profile_id": "u1"}, nil)

	assert.True(t, IsPolicyDenied(err))
	assert.Contains(t, err.Error(), "row-level security")
}

func TestQuery_InsertReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body row
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Lamp", body.Title)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":9,"title":"Lamp"}`)
	})

	var out row
	err := c.From("products").Single().Insert(context.Background(), row{Title: "Lamp"}, &out)

	require.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
}

func TestQuery_UpdateAndDelete(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "eq.3", r.URL.Query().Get("id"))
		if r.Method == http.MethodDelete {
			assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, `[{"id":3,"title":"new"}]`)
	})

	var out []row
	require.NoError(t, c.From("products").Eq("id", 3).Update(context.Background(), map[string]string{"title": "new"}, &out))
	require.NoError(t, c.From("products").Eq("id", 3).Delete(context.Background()))

	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, methods)
	require.Len(t, out, 1)
	assert.Equal(t, "new", out[0].Title)
}

func TestDecodeError_AuthShapes(t *testing.T) {
	e := decodeError(http.StatusBadRequest, []byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
	assert.Equal(t, "invalid_credentials", e.Code)
	assert.Equal(t, "Invalid login credentials", e.Message)

	e = decodeError(http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
	assert.Equal(t, "invalid_grant", e.Code)
	assert.Equal(t, "Invalid Refresh Token", e.Message)

	e = decodeError(http.StatusBadGateway, []byte(`<html>bad gateway</html>`))
	assert.Empty(t, e.Code)
	assert.Equal(t, "Bad Gateway", e.Message)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s := circuitbreaker.DefaultSettings("test-remote")
	s.ConsecutiveFailures = 2
	c, err := NewClient(Config{URL: srv.URL, APIKey: testKey, Breaker: s})
	require.NoError(t, err)

	require.NoError(t, c.Ping(context.Background()))
	for i := 0; i < 2; i++ {
		assert.Error(t, c.From("products").Get(context.Background(), nil))
	}
	err = c.From("products").Get(context.Background(), nil)

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrBackendUnavailable)
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = io.WriteString(w, `{"code":"PGRST116","message":"no rows"}`)
	}))
	t.Cleanup(srv.Close)

	s := circuitbreaker.DefaultSettings("test-remote")
	s.ConsecutiveFailures = 2
	c, err := NewClient(Config{URL: srv.URL, APIKey: testKey, Breaker: s})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.True(t, IsNoRows(c.From("profiles").Single().Get(context.Background(), nil)))
	}
	assert.Equal(t, 4, calls)
}
