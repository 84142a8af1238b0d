package store

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/remote"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	Accept string
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, body string)

// fakeBackend answers table API requests by method and path and records
// every request it sees.
type fakeBackend struct {
	mu       sync.Mutex
	handlers map[string][]handlerFunc
	requests []recordedRequest
}

func newFakeBackend(t *testing.T) (*fakeBackend, *remote.Client) {
	t.Helper()
	f := &fakeBackend{handlers: map[string][]handlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	c, err := remote.NewClient(remote.Config{URL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return f, c
}

// on queues a handler for method+path. Queued handlers answer in order; the
// last one keeps answering.
func (f *fakeBackend) on(method, path string, h handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.handlers[key] = append(f.handlers[key], h)
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   string(data),
		Accept: r.Header.Get("Accept"),
	})
	key := r.Method + " " + r.URL.Path
	queue := f.handlers[key]
	var h handlerFunc
	if len(queue) > 0 {
		h = queue[0]
		if len(queue) > 1 {
			f.handlers[key] = queue[1:]
		}
	}
	f.mu.Unlock()

	if h == nil {
		respond(w, http.StatusNotFound, `{"message":"no handler"}`)
		return
	}
	h(w, r, string(data))
}

func (f *fakeBackend) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeBackend) count(method, path string) int {
	n := 0
	for _, r := range f.recorded() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func reply(status int, body string) handlerFunc {
	return func(w http.ResponseWriter, _ *http.Request, _ string) {
		respond(w, status, body)
	}
}

const (
	noRowsBody = `{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`
	rlsBody    = `{"code":"42501","details":null,"hint":null,"message":"new row violates row-level security policy"}`
	serverBody = `{"code":"XX000","message":"internal error"}`
)
