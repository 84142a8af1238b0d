package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(ttl time.Duration) (*Registry, *[]*MockAuth) {
	var auths []*MockAuth
	r := NewRegistry(func() AuthClient {
		a := NewMockAuth()
		auths = append(auths, a)
		return a
	}, &MockProfiles{}, ttl)
	return r, &auths
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r, auths := newTestRegistry(time.Minute)

	m1, q1, created := r.Get("visitor-1")
	require.True(t, created)
	m2, q2, created := r.Get("visitor-1")
	assert.False(t, created)

	assert.Same(t, m1, m2)
	assert.Same(t, q1, q2)
	assert.Len(t, *auths, 1)

	_, _, created = r.Get("visitor-2")
	assert.True(t, created)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_SweepEvictsIdle(t *testing.T) {
	r, auths := newTestRegistry(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	var evicted []string
	r.OnEvict(func(id string) { evicted = append(evicted, id) })

	r.Get("old")
	now = now.Add(8 * time.Minute)
	r.Get("fresh")
	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 0, (*auths)[0].listenerCount())
	assert.Equal(t, 1, (*auths)[1].listenerCount())
}

func TestRegistry_Drop(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	var evicted []string
	r.OnEvict(func(id string) { evicted = append(evicted, id) })
	r.Get("v")

	r.Drop("v")
	r.Drop("missing")

	assert.Zero(t, r.Len())
	assert.Equal(t, []string{"v"}, evicted)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r, _ := newTestRegistry(time.Nanosecond)
	var mu sync.Mutex
	var evicted []string
	r.OnEvict(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, id)
	})
	r.Get("v")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(evicted) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
