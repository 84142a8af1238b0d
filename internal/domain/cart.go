package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product in a cart. Product is a snapshot taken when the
// line was first added and is never refreshed.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartRecord is the durable form of a visitor's cart.
type CartRecord struct {
	OwnerID   string     `json:"owner_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
