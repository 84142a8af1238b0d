package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"golang.org/x/sync/singleflight"
)

const persistTimeout = 3 * time.Second

// CartService keeps one live cart per owner and mirrors every change to the
// repository. Cart operations never fail once the cart is loaded; storage
// errors are logged.
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group

	mu    sync.Mutex
	carts map[string]*liveCart
}

// liveCart serializes mutate-and-persist so stored snapshots keep the order
// of the mutations.
type liveCart struct {
	mu   sync.Mutex
	cart *cart.Cart
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
		carts: make(map[string]*liveCart),
	}
}

// GetCart returns the owner's live cart, loading it from the cache or the
// repository the first time.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*cart.Cart, error) {
	lc, err := s.loadLive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return lc.cart, nil
}

func (s *CartService) loadLive(ctx context.Context, ownerID string) (*liveCart, error) {
	if lc := s.live(ownerID); lc != nil {
		return lc, nil
	}

	v, err, _ := s.sfg.Do(ownerID, func() (any, error) {
		if lc := s.live(ownerID); lc != nil {
			return lc, nil
		}

		record, err := s.load(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		lc := &liveCart{cart: cart.New(record.Lines...)}
		s.mu.Lock()
		s.carts[ownerID] = lc
		s.mu.Unlock()
		return lc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*liveCart), nil
}

func (s *CartService) load(ctx context.Context, ownerID string) (*domain.CartRecord, error) {
	const op = "CartService.load"
	log := slog.With("op", op, "owner_id", ownerID)

	record, err := s.cache.Get(ctx, ownerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.WarnContext(ctx, "cache get failed", "error", err)
	}

	record, err = s.repo.GetCart(ctx, ownerID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &domain.CartRecord{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, err
	}

	// The fill completes before the live cart is published, so a later
	// mutation's invalidation cannot be overtaken by it.
	fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.cache.Set(fillCtx, record); err != nil {
		log.WarnContext(ctx, "cache set failed", "error", err)
	}

	return record, nil
}

func (s *CartService) AddItem(ctx context.Context, ownerID string, p domain.Product) (cart.Snapshot, error) {
	return s.mutate(ctx, ownerID, func(c *cart.Cart) { c.Add(p) })
}

func (s *CartService) UpdateQuantity(ctx context.Context, ownerID, productID string, delta int) (cart.Snapshot, error) {
	return s.mutate(ctx, ownerID, func(c *cart.Cart) { c.UpdateQuantity(productID, delta) })
}

func (s *CartService) RemoveItem(ctx context.Context, ownerID, productID string) (cart.Snapshot, error) {
	return s.mutate(ctx, ownerID, func(c *cart.Cart) { c.Remove(productID) })
}

func (s *CartService) ClearCart(ctx context.Context, ownerID string) (cart.Snapshot, error) {
	return s.mutate(ctx, ownerID, func(c *cart.Cart) { c.Clear() })
}

// Forget drops the live cart of ownerID; the stored copy is kept.
func (s *CartService) Forget(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, ownerID)
}

func (s *CartService) mutate(ctx context.Context, ownerID string, fn func(*cart.Cart)) (cart.Snapshot, error) {
	lc, err := s.loadLive(ctx, ownerID)
	if err != nil {
		return cart.Snapshot{}, err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	fn(lc.cart)
	snap := lc.cart.Snapshot()
	s.persist(ctx, ownerID, snap)
	return snap, nil
}

func (s *CartService) persist(ctx context.Context, ownerID string, snap cart.Snapshot) {
	const op = "CartService.persist"
	log := slog.With("op", op, "owner_id", ownerID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var err error
	if snap.Empty() {
		err = s.repo.DeleteCart(ctx, ownerID)
	} else {
		err = s.repo.UpsertCart(ctx, &domain.CartRecord{OwnerID: ownerID, Lines: snap.Lines})
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to store cart", "error", err)
	}

	if err := s.cache.Delete(ctx, ownerID); err != nil {
		log.WarnContext(ctx, "cache invalidate failed", "error", err)
	}
}

func (s *CartService) live(ownerID string) *liveCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[ownerID]
}
