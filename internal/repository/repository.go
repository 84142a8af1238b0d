package repository

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository stores one cart record per owner.
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.CartRecord, error)
	UpsertCart(ctx context.Context, record *domain.CartRecord) error
	DeleteCart(ctx context.Context, ownerID string) error
}
