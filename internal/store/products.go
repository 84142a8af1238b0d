package store

import (
	"context"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

type ProductStore struct {
	db *remote.Client
}

func NewProductStore(db *remote.Client) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) List(ctx context.Context) []domain.Product {
	const op = "ProductStore.List"

	products := []domain.Product{}
	if err := s.db.From(tableProducts).Select("*").Get(ctx, &products); err != nil {
		logSwallowed(ctx, op, "failed to fetch products", err)
		return []domain.Product{}
	}
	return products
}

// Get returns nil when the product does not exist or cannot be read.
func (s *ProductStore) Get(ctx context.Context, productID string) *domain.Product {
	const op = "ProductStore.Get"

	var p domain.Product
	err := s.db.From(tableProducts).Select("*").Eq("product_id", productID).Single().Get(ctx, &p)
	if err != nil {
		logSwallowed(ctx, op, "failed to fetch product", err, "product_id", productID)
		return nil
	}
	return &p
}

func (s *ProductStore) ListByCategory(ctx context.Context, categoryID int64) []domain.Product {
	const op = "ProductStore.ListByCategory"

	products := []domain.Product{}
	err := s.db.From(tableProducts).Select("*").Eq("category_id", categoryID).Get(ctx, &products)
	if err != nil {
		logSwallowed(ctx, op, "failed to fetch products by category", err, "category_id", categoryID)
		return []domain.Product{}
	}
	return products
}

// Search matches the query against title or description, ignoring case.
func (s *ProductStore) Search(ctx context.Context, query string) []domain.Product {
	const op = "ProductStore.Search"

	term := sanitizeTerm(query)
	if term == "" {
		return s.List(ctx)
	}

	products := []domain.Product{}
	pattern := "*" + term + "*"
	err := s.db.From(tableProducts).
		Select("*").
		Or("title.ilike." + pattern + ",description.ilike." + pattern).
		Get(ctx, &products)
	if err != nil {
		logSwallowed(ctx, op, "failed to search products", err, "query", query)
		return []domain.Product{}
	}
	return products
}

// sanitizeTerm strips characters that would break an or=(...) filter.
func sanitizeTerm(q string) string {
	q = strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '"':
			return -1
		}
		return r
	}, q)
	return strings.TrimSpace(q)
}
