package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/store"
	"github.com/go-chi/chi/v5"
)

type OrderReader interface {
	UserOrders(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
}

type Checkout interface {
	Summary(ctx context.Context, ownerID string) (cart.Snapshot, error)
	PlaceOrder(ctx context.Context, ownerID string, user *domain.User, req service.CheckoutRequest) (*domain.Order, error)
}

type OrdersHandler struct {
	orders    OrderReader
	checkout  Checkout
	addresses AddressBook
}

func NewOrdersHandler(orders OrderReader, checkout Checkout, addresses AddressBook) *OrdersHandler {
	return &OrdersHandler{orders: orders, checkout: checkout, addresses: addresses}
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := visitorFrom(r.Context()).User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to view your orders")
		return
	}

	orders, err := h.orders.UserOrders(r.Context(), user.ID)
	if err != nil {
		respondRemoteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(orders))
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user := visitorFrom(r.Context()).User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to view your orders")
		return
	}
	id, ok := parseID(chi.URLParam(r, "order_id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondRemoteError(w, err)
		return
	}
	if order.UserID != user.ID {
		respondError(w, http.StatusNotFound, "not_found", "no data found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) Summary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checkout.Summary(r.Context(), visitorFrom(r.Context()).ID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "cart could not be loaded")
		return
	}
	respondSnapshot(w, http.StatusOK, snap)
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.PlaceOrder"
	v := visitorFrom(r.Context())
	user := v.User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to place an order")
		return
	}

	var req service.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ShippingAddressID != 0 {
		addr := h.addresses.Get(r.Context(), req.ShippingAddressID)
		if addr == nil || addr.UserID != user.ID {
			respondError(w, http.StatusBadRequest, "invalid_address", "shipping address not found")
			return
		}
	}

	order, err := h.checkout.PlaceOrder(r.Context(), v.ID, user, req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, order)
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, service.ErrNoShippingAddress):
		respondError(w, http.StatusBadRequest, "invalid_address", "shipping address is required")
	case errors.Is(err, service.ErrNotSignedIn):
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to place an order")
	case errors.Is(err, store.ErrOrderItems):
		slog.With("op", op).ErrorContext(r.Context(), "order items rejected", "error", err)
		respondError(w, http.StatusBadGateway, "order_items_failed", "order could not be completed")
	default:
		slog.With("op", op).ErrorContext(r.Context(), "place order failed", "error", err)
		respondRemoteError(w, err)
	}
}
