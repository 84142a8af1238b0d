package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type Order struct {
	ID                int64           `json:"id,omitempty"`
	UserID            string          `json:"user_id"`
	Status            OrderStatus     `json:"status"`
	Total             decimal.Decimal `json:"total"`
	ShippingAddressID int64           `json:"shipping_address_id"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	PaymentID         string          `json:"payment_id,omitempty"`
	CreatedAt         *time.Time      `json:"created_at,omitempty"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
	Items             []OrderItem     `json:"order_items,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id,omitempty"`
	OrderID   int64           `json:"order_id,omitempty"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   *ProductSummary `json:"product,omitempty"`
}
