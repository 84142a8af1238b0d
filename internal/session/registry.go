package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/notify"
)

// CleanupInterval is how often Run looks for idle sessions.
const CleanupInterval = time.Minute

type entry struct {
	manager  *Manager
	notes    *notify.Queue
	lastSeen time.Time
}

// Registry owns one Manager and notification queue per browser session id.
type Registry struct {
	newAuth  func() AuthClient
	profiles ProfileStore
	idleTTL  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	onEvict []func(id string)
}

func NewRegistry(newAuth func() AuthClient, profiles ProfileStore, idleTTL time.Duration) *Registry {
	return &Registry{
		newAuth:  newAuth,
		profiles: profiles,
		idleTTL:  idleTTL,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

// OnEvict registers fn to run after an idle or dropped session is removed.
func (r *Registry) OnEvict(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = append(r.onEvict, fn)
}

// Get returns the manager and notification queue for id, creating both on
// first use. created is true when a new manager was made.
func (r *Registry) Get(id string) (m *Manager, notes *notify.Queue, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		q := notify.NewQueue(0)
		e = &entry{
			manager: NewManager(r.newAuth(), r.profiles, q),
			notes:   q,
		}
		r.entries[id] = e
	}
	e.lastSeen = r.now()
	return e.manager, e.notes, !ok
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	hooks := r.onEvict
	r.mu.Unlock()

	if ok {
		e.manager.Close()
		for _, fn := range hooks {
			fn(id)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes sessions idle for longer than the idle TTL and returns how
// many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTTL)
	idle := make(map[string]*entry)
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			idle[id] = e
			delete(r.entries, id)
		}
	}
	hooks := r.onEvict
	r.mu.Unlock()

	for id, e := range idle {
		e.manager.Close()
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.DebugContext(ctx, "evicted idle sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
