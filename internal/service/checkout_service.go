package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/outbox"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoShippingAddress = errors.New("shipping address is required")
	ErrNotSignedIn       = errors.New("sign in to place an order")
)

type OrderCreator interface {
	Create(ctx context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error)
}

type EventRecorder interface {
	Add(ctx context.Context, e outbox.Event) error
}

type CheckoutRequest struct {
	ShippingAddressID int64  `json:"shipping_address_id"`
	PaymentMethod     string `json:"payment_method"`
}

// OrderPlaced is the payload of the order.placed outbox event.
type OrderPlaced struct {
	OrderID int64              `json:"order_id"`
	UserID  string             `json:"user_id"`
	Total   decimal.Decimal    `json:"total"`
	Items   []domain.OrderItem `json:"items"`
}

type CheckoutService struct {
	carts  *CartService
	orders OrderCreator
	events EventRecorder
}

// NewCheckoutService builds the checkout flow. events may be nil, in which
// case no outbox event is recorded.
func NewCheckoutService(carts *CartService, orders OrderCreator, events EventRecorder) *CheckoutService {
	return &CheckoutService{carts: carts, orders: orders, events: events}
}

// Summary returns the cart as shown on the checkout page.
func (s *CheckoutService) Summary(ctx context.Context, ownerID string) (cart.Snapshot, error) {
	c, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// PlaceOrder turns the owner's cart into a pending order for user and empties
// the cart once the order is stored.
func (s *CheckoutService) PlaceOrder(ctx context.Context, ownerID string, user *domain.User, req CheckoutRequest) (*domain.Order, error) {
	const op = "CheckoutService.PlaceOrder"
	log := slog.With("op", op, "owner_id", ownerID)

	if user == nil {
		return nil, ErrNotSignedIn
	}
	if req.ShippingAddressID == 0 {
		return nil, ErrNoShippingAddress
	}

	snap, err := s.Summary(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	if snap.Empty() {
		return nil, ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, domain.OrderItem{
			ProductID: l.Product.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}

	order, err := s.orders.Create(ctx, domain.Order{
		UserID:            user.ID,
		Status:            domain.OrderStatusPending,
		Total:             snap.Subtotal,
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     req.PaymentMethod,
	}, items)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	s.recordPlaced(ctx, order, items)

	if _, err := s.carts.ClearCart(ctx, ownerID); err != nil {
		log.ErrorContext(ctx, "failed to clear cart after order", "order_id", order.ID, "error", err)
	}

	log.InfoContext(ctx, "order placed", "order_id", order.ID, "items", snap.TotalItems)
	return order, nil
}

func (s *CheckoutService) recordPlaced(ctx context.Context, order *domain.Order, items []domain.OrderItem) {
	const op = "CheckoutService.recordPlaced"
	log := slog.With("op", op, "order_id", order.ID)

	if s.events == nil {
		return
	}

	e, err := outbox.NewEvent(strconv.FormatInt(order.ID, 10), outbox.EventOrderPlaced, OrderPlaced{
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Items:   items,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to build event", "error", err)
		return
	}
	if err := s.events.Add(ctx, e); err != nil {
		log.ErrorContext(ctx, "failed to record event", "error", err)
	}
}
