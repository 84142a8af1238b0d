package http

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/store"
)

const testPassword = "secret123"

var errBadCredentials = &remote.Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}

// MockAuth implements session.AuthClient. Any email signs in with
// testPassword; the refresh token is "refresh-" + email.
type MockAuth struct {
	mu        sync.Mutex
	listeners map[int]remote.AuthStateListener
	nextID    int
}

func NewMockAuth() *MockAuth {
	return &MockAuth{listeners: map[int]remote.AuthStateListener{}}
}

func sessionFor(email string) *domain.Session {
	return &domain.Session{
		AccessToken:  "access-" + email,
		RefreshToken: "refresh-" + email,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.User{ID: "user-" + email, Email: email},
	}
}

func (m *MockAuth) emit(ctx context.Context, e remote.AuthEvent, s *domain.Session) {
	m.mu.Lock()
	ls := make([]remote.AuthStateListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.mu.Unlock()
	for _, l := range ls {
		l(ctx, e, s)
	}
}

func (m *MockAuth) SignUp(ctx context.Context, email, _ string) (*domain.User, *domain.Session, error) {
	s := sessionFor(email)
	m.emit(ctx, remote.EventSignedIn, s)
	return &s.User, s, nil
}

func (m *MockAuth) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if password != testPassword {
		return nil, errBadCredentials
	}
	s := sessionFor(email)
	m.emit(ctx, remote.EventSignedIn, s)
	return s, nil
}

func (m *MockAuth) SignOut(ctx context.Context) error {
	m.emit(ctx, remote.EventSignedOut, nil)
	return nil
}

func (m *MockAuth) Restore(ctx context.Context, refreshToken string) (*domain.Session, error) {
	email, ok := strings.CutPrefix(refreshToken, "refresh-")
	if !ok {
		m.emit(ctx, remote.EventInitialSession, nil)
		return nil, errors.New("invalid refresh token")
	}
	s := sessionFor(email)
	m.emit(ctx, remote.EventInitialSession, s)
	return s, nil
}

func (m *MockAuth) Refresh(ctx context.Context) (*domain.Session, error) {
	return nil, errors.New("not supported")
}

func (m *MockAuth) OnAuthStateChange(l remote.AuthStateListener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// MockProfiles implements session.ProfileStore and profile.Updater.
type MockProfiles struct {
	mu        sync.Mutex
	profiles  map[string]*domain.Profile
	UpdateErr error
}

func NewMockProfiles() *MockProfiles {
	return &MockProfiles{profiles: map[string]*domain.Profile{}}
}

func (m *MockProfiles) Get(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, &remote.Error{Status: 406, Code: remote.CodeNoRows, Message: "no rows"}
	}
	return p, nil
}

func (m *MockProfiles) Create(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.Profile{ProfileID: userID, CreatedAt: time.Now().UTC()}
	m.profiles[userID] = p
	return p, nil
}

func (m *MockProfiles) Update(_ context.Context, userID string, upd store.ProfileUpdate) (*domain.Profile, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.Profile{ProfileID: userID, Username: upd.Username, AvatarURL: upd.AvatarURL}
	m.profiles[userID] = p
	return p, nil
}

// MockCatalog implements ProductReader and ReviewBook.
type MockCatalog struct {
	mu         sync.Mutex
	Products []domain.Product
	Reviews  []domain.Review
	Searched string
}

func (m *MockCatalog) List(_ context.Context) []domain.Product {
	return m.Products
}

func (m *MockCatalog) Get(_ context.Context, productID string) *domain.Product {
	for i := range m.Products {
		if m.Products[i].ProductID == productID {
			p := m.Products[i]
			return &p
		}
	}
	return nil
}

func (m *MockCatalog) ListByCategory(_ context.Context, categoryID int64) []domain.Product {
	var out []domain.Product
	for _, p := range m.Products {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockCatalog) Search(_ context.Context, query string) []domain.Product {
	m.Searched = query
	var out []domain.Product
	for _, p := range m.Products {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockCatalog) ForProduct(_ context.Context, productID string) []domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Review
	for _, r := range m.Reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}

func (m *MockCatalog) Create(_ context.Context, r domain.Review) *domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.Reviews) + 1)
	m.Reviews = append(m.Reviews, r)
	return &r
}

// MockCategories implements CategoryReader.
type MockCategories struct {
	Categories []domain.Category
}

func (m *MockCategories) List(_ context.Context) []domain.Category {
	return m.Categories
}

func (m *MockCategories) Get(_ context.Context, id int64) *domain.Category {
	for i := range m.Categories {
		if m.Categories[i].ID == id {
			c := m.Categories[i]
			return &c
		}
	}
	return nil
}

func (m *MockCategories) Subcategories(_ context.Context, parentID int64) []domain.Category {
	var out []domain.Category
	for _, c := range m.Categories {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}

// MockOrders implements OrderReader and service.OrderCreator.
type MockOrders struct {
	mu     sync.Mutex
	orders []domain.Order
	Err    error
}

func (m *MockOrders) Create(_ context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = int64(len(m.orders) + 1)
	order.Items = items
	m.orders = append(m.orders, order)
	return &order, nil
}

func (m *MockOrders) UserOrders(_ context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrders) Get(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, &remote.Error{Status: 406, Code: remote.CodeNoRows, Message: "no rows"}
}

// MockAddresses implements AddressBook.
type MockAddresses struct {
	mu        sync.Mutex
	addresses map[int64]domain.Address
	nextID    int64
}

func NewMockAddresses() *MockAddresses {
	return &MockAddresses{addresses: map[int64]domain.Address{}}
}

func (m *MockAddresses) ListForUser(_ context.Context, userID string) []domain.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

func (m *MockAddresses) Get(_ context.Context, id int64) *domain.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil
	}
	return &a
}

func (m *MockAddresses) Create(_ context.Context, addr domain.Address) *domain.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	addr.ID = m.nextID
	m.addresses[addr.ID] = addr
	return &addr
}

func (m *MockAddresses) Update(_ context.Context, id int64, addr domain.Address) *domain.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr.ID = id
	m.addresses[id] = addr
	return &addr
}

func (m *MockAddresses) Delete(_ context.Context, id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.addresses, id)
	return true
}

// memoryCarts implements repository.CartRepository and cache.CartCache with
// nothing stored.
type memoryCarts struct{}

func (memoryCarts) GetCart(context.Context, string) (*domain.CartRecord, error) {
	return nil, repository.ErrCartNotFound
}
func (memoryCarts) UpsertCart(context.Context, *domain.CartRecord) error { return nil }
func (memoryCarts) DeleteCart(context.Context, string) error             { return nil }
func (memoryCarts) Get(context.Context, string) (*domain.CartRecord, error) {
	return nil, cache.ErrCacheMiss
}
func (memoryCarts) Set(context.Context, *domain.CartRecord) error { return nil }
func (memoryCarts) Delete(context.Context, string) error          { return nil }
