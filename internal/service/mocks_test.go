package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/outbox"
	"github.com/fjod/storefront/internal/repository"
)

// MockRepository implements repository.CartRepository for testing
type MockRepository struct {
	mu      sync.Mutex
	Records map[string]*domain.CartRecord
	GetErr  error
	PutErr  error
	// Delay slows GetCart down so concurrent loads overlap.
	Delay time.Duration

	Gets    atomic.Int32
	Upserts atomic.Int32
	Deletes atomic.Int32
}

func NewMockRepository() *MockRepository {
	return &MockRepository{Records: make(map[string]*domain.CartRecord)}
}

func (m *MockRepository) GetCart(_ context.Context, ownerID string) (*domain.CartRecord, error) {
	m.Gets.Add(1)
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[ownerID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return rec, nil
}

func (m *MockRepository) UpsertCart(_ context.Context, record *domain.CartRecord) error {
	m.Upserts.Add(1)
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[record.OwnerID] = record
	return nil
}

func (m *MockRepository) DeleteCart(_ context.Context, ownerID string) error {
	m.Deletes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Records, ownerID)
	return nil
}

func (m *MockRepository) Record(ownerID string) *domain.CartRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records[ownerID]
}

// MockCache implements cache.CartCache for testing
type MockCache struct {
	mu      sync.Mutex
	Records map[string]*domain.CartRecord
	GetErr  error

	Sets    atomic.Int32
	Deletes atomic.Int32

	// SetStarted, when set, receives a value as Set is entered. Set then
	// waits for SetGate to be closed.
	SetStarted chan struct{}
	SetGate    chan struct{}
}

func NewMockCache() *MockCache {
	return &MockCache{Records: make(map[string]*domain.CartRecord)}
}

func (m *MockCache) Get(_ context.Context, ownerID string) (*domain.CartRecord, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[ownerID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return rec, nil
}

func (m *MockCache) Set(_ context.Context, record *domain.CartRecord) error {
	m.Sets.Add(1)
	if m.SetStarted != nil {
		m.SetStarted <- struct{}{}
	}
	if m.SetGate != nil {
		<-m.SetGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[record.OwnerID] = record
	return nil
}

func (m *MockCache) Delete(_ context.Context, ownerID string) error {
	m.Deletes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Records, ownerID)
	return nil
}

// MockOrders implements OrderCreator for testing
type MockOrders struct {
	Order *domain.Order
	Items []domain.OrderItem
	Err   error
}

func (m *MockOrders) Create(_ context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error) {
	m.Order = &order
	m.Items = items
	if m.Err != nil {
		return nil, m.Err
	}
	created := order
	created.ID = 77
	created.Items = items
	return &created, nil
}

// MockEvents implements EventRecorder for testing
type MockEvents struct {
	Events []outbox.Event
	Err    error
}

func (m *MockEvents) Add(_ context.Context, e outbox.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, e)
	return nil
}
