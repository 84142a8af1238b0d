package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID   string          `json:"product_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Stock       *int            `json:"stock,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// Clone returns a copy of p that shares no pointers with it.
func (p Product) Clone() Product {
	p.Stock = clonePtr(p.Stock)
	p.CategoryID = clonePtr(p.CategoryID)
	p.CreatedAt = clonePtr(p.CreatedAt)
	p.UpdatedAt = clonePtr(p.UpdatedAt)
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// ProductSummary is the slice of a product embedded into order items and reviews.
type ProductSummary struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id,omitempty"`
}
