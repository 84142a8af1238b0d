// Package notify carries short user-facing messages (toasts) from the
// services to whatever renders them.
package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notification struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

const defaultQueueSize = 20

// Queue buffers notifications until they are drained. Once full, the oldest
// entries are dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	max   int
	now   func() time.Time
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = defaultQueueSize
	}
	return &Queue{max: max, now: time.Now}
}

func (q *Queue) Success(msg string) { q.push(KindSuccess, msg) }

func (q *Queue) Error(msg string) { q.push(KindError, msg) }

func (q *Queue) push(kind Kind, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, Notification{Kind: kind, Message: msg, At: q.now()})
	if over := len(q.items) - q.max; over > 0 {
		q.items = append([]Notification(nil), q.items[over:]...)
	}
}

// Drain returns the buffered notifications and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}
