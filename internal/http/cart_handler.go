package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartOperations interface {
	GetCart(ctx context.Context, ownerID string) (*cart.Cart, error)
	AddItem(ctx context.Context, ownerID string, p domain.Product) (cart.Snapshot, error)
	UpdateQuantity(ctx context.Context, ownerID, productID string, delta int) (cart.Snapshot, error)
	RemoveItem(ctx context.Context, ownerID, productID string) (cart.Snapshot, error)
	ClearCart(ctx context.Context, ownerID string) (cart.Snapshot, error)
}

// CartHandler works on the cart of the requesting visitor; signing in is not
// required.
type CartHandler struct {
	carts    CartOperations
	products ProductReader
}

func NewCartHandler(carts CartOperations, products ProductReader) *CartHandler {
	return &CartHandler{carts: carts, products: products}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	v := visitorFrom(r.Context())
	c, err := h.carts.GetCart(r.Context(), v.ID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "cart could not be loaded")
		return
	}
	respondSnapshot(w, http.StatusOK, c.Snapshot())
}

// AddItem adds one unit of the product. The product is looked up so the line
// keeps a snapshot of its current title and price.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	p := h.products.Get(r.Context(), productID)
	if p == nil {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	snap, err := h.carts.AddItem(r.Context(), visitorFrom(r.Context()).ID, *p)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "cart could not be loaded")
		return
	}
	respondSnapshot(w, http.StatusCreated, snap)
}

// UpdateQuantity changes a line by delta; reaching zero removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must not be zero")
		return
	}

	snap, err := h.carts.UpdateQuantity(r.Context(), visitorFrom(r.Context()).ID, chi.URLParam(r, "product_id"), req.Delta)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "cart could not be loaded")
		return
	}
	respondSnapshot(w, http.StatusOK, snap)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.RemoveItem(r.Context(), visitorFrom(r.Context()).ID, chi.URLParam(r, "product_id"))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "cart could not be loaded")
		return
	}
	respondSnapshot(w, http.StatusOK, snap)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.ClearCart(r.Context(), visitorFrom(r.Context()).ID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "cart_unavailable", "cart could not be loaded")
		return
	}
	respondSnapshot(w, http.StatusOK, snap)
}

func respondSnapshot(w http.ResponseWriter, status int, snap cart.Snapshot) {
	snap.Lines = orEmpty(snap.Lines)
	respondJSON(w, status, snap)
}
