package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProductReader interface {
	List(ctx context.Context) []domain.Product
	Get(ctx context.Context, productID string) *domain.Product
	ListByCategory(ctx context.Context, categoryID int64) []domain.Product
	Search(ctx context.Context, query string) []domain.Product
}

type CategoryReader interface {
	List(ctx context.Context) []domain.Category
	Get(ctx context.Context, id int64) *domain.Category
	Subcategories(ctx context.Context, parentID int64) []domain.Category
}

type ReviewBook interface {
	ForProduct(ctx context.Context, productID string) []domain.Review
	Create(ctx context.Context, r domain.Review) *domain.Review
}

// CatalogHandler serves products, categories and product reviews. The stores
// behind it report failures as empty results.
type CatalogHandler struct {
	products   ProductReader
	categories CategoryReader
	reviews    ReviewBook
}

func NewCatalogHandler(products ProductReader, categories CategoryReader, reviews ReviewBook) *CatalogHandler {
	return &CatalogHandler{products: products, categories: categories, reviews: reviews}
}

type ReviewRequestDTO struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var products []domain.Product
	switch {
	case q.Get("category_id") != "":
		id, ok := parseID(q.Get("category_id"))
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid_category_id", "category_id must be a positive integer")
			return
		}
		products = h.products.ListByCategory(ctx, id)
	case strings.TrimSpace(q.Get("q")) != "":
		products = h.products.Search(ctx, q.Get("q"))
	default:
		products = h.products.List(ctx)
	}

	respondJSON(w, http.StatusOK, orEmpty(products))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p := h.products.Get(r.Context(), chi.URLParam(r, "product_id"))
	if p == nil {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews := h.reviews.ForProduct(r.Context(), chi.URLParam(r, "product_id"))
	respondJSON(w, http.StatusOK, orEmpty(reviews))
}

// CreateReview stores the visitor's review, replacing an earlier one for the
// same product.
func (h *CatalogHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	user := visitorFrom(r.Context()).User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to leave a review")
		return
	}

	var req ReviewRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, http.StatusBadRequest, "invalid_rating", "rating must be between 1 and 5")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if h.products.Get(r.Context(), productID) == nil {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	review := h.reviews.Create(r.Context(), domain.Review{
		ProductID: productID,
		UserID:    user.ID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	})
	if review == nil {
		respondError(w, http.StatusBadGateway, "review_not_saved", "review could not be saved")
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, orEmpty(h.categories.List(r.Context())))
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "id must be a positive integer")
		return
	}
	c := h.categories.Get(r.Context(), id)
	if c == nil {
		respondError(w, http.StatusNotFound, "not_found", "category not found")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "id must be a positive integer")
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(h.categories.Subcategories(r.Context(), id)))
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
