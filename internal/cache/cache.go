package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// CartCache holds recently loaded cart records keyed by owner id.
type CartCache interface {
	Get(ctx context.Context, ownerID string) (*domain.CartRecord, error)
	Set(ctx context.Context, record *domain.CartRecord) error
	Delete(ctx context.Context, ownerID string) error
}

var ErrCacheMiss = errors.New("cache miss")
