package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

var (
	ErrOrderItems    = errors.New("failed to create order items")
	ErrInvalidStatus = errors.New("invalid order status")
)

const orderSelect = `*, order_items(*, product:product_id(product_id, title, image))`

const compensationTimeout = 5 * time.Second

type OrderStore struct {
	db *remote.Client
}

func NewOrderStore(db *remote.Client) *OrderStore {
	return &OrderStore{db: db}
}

// UserOrders returns the user's orders, newest first, with their items.
func (s *OrderStore) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := s.db.From(tableOrders).
		Select(orderSelect).
		Eq("user_id", userID).
		Order("created_at", false).
		Get(ctx, &orders)
	if err != nil {
		return nil, fmt.Errorf("fetching orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := s.db.From(tableOrders).Select(orderSelect).Eq("id", id).Single().Get(ctx, &o); err != nil {
		return nil, fmt.Errorf("fetching order %d: %w", id, err)
	}
	return &o, nil
}

// Create inserts the order and then its items. When the items cannot be
// inserted the order row is deleted again and ErrOrderItems is returned.
func (s *OrderStore) Create(ctx context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error) {
	const op = "OrderStore.Create"

	order.ID = 0
	order.Items = nil
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	var created domain.Order
	if err := s.db.From(tableOrders).Single().Insert(ctx, order, &created); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	var rows []domain.OrderItem
	if len(items) > 0 {
		rows = make([]domain.OrderItem, len(items))
		for i, it := range items {
			it.ID = 0
			it.OrderID = created.ID
			it.Product = nil
			rows[i] = it
		}

		if err := s.db.From(tableOrderItems).Insert(ctx, rows, nil); err != nil {
			s.discardOrder(ctx, created.ID)
			slog.With("op", op).ErrorContext(ctx, "order items insert failed", "order_id", created.ID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrOrderItems, err)
		}
	}

	// Both rows are stored at this point; a failed re-read must not report
	// the order as missing.
	full, err := s.Get(ctx, created.ID)
	if err != nil {
		slog.With("op", op).WarnContext(ctx, "order re-read failed, returning inserted rows", "order_id", created.ID, "error", err)
		created.Items = rows
		return &created, nil
	}
	return full, nil
}

func (s *OrderStore) discardOrder(ctx context.Context, id int64) {
	const op = "OrderStore.discardOrder"

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.db.From(tableOrders).Eq("id", id).Delete(ctx); err != nil {
		slog.With("op", op).ErrorContext(ctx, "failed to delete order without items", "order_id", id, "error", err)
	}
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var o domain.Order
	err := s.db.From(tableOrders).
		Eq("id", id).
		Single().
		Update(ctx, map[string]any{"status": status}, &o)
	if err != nil {
		return nil, fmt.Errorf("updating order %d status: %w", id, err)
	}
	return &o, nil
}
