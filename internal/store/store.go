// Package store reads and writes storefront entities through the remote
// table API. Catalog, address and review reads swallow failures into empty
// results; order and profile operations return errors to their callers.
package store

import (
	"context"
	"log/slog"

	"github.com/fjod/storefront/internal/remote"
)

const (
	tableProducts   = "products"
	tableCategories = "categories"
	tableOrders     = "orders"
	tableOrderItems = "order_items"
	tableProfiles   = "profiles"
	tableAddresses  = "addresses"
	tableReviews    = "reviews"
)

// logSwallowed records a failure that is turned into an empty result.
func logSwallowed(ctx context.Context, op, msg string, err error, attrs ...any) {
	log := slog.With("op", op)
	args := append([]any{"error", err}, attrs...)
	if remote.IsNoRows(err) {
		log.DebugContext(ctx, msg, args...)
		return
	}
	log.ErrorContext(ctx, msg, args...)
}
