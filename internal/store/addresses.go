package store

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

type AddressStore struct {
	db *remote.Client
}

func NewAddressStore(db *remote.Client) *AddressStore {
	return &AddressStore{db: db}
}

// ListForUser returns the user's addresses with the default one first.
func (s *AddressStore) ListForUser(ctx context.Context, userID string) []domain.Address {
	const op = "AddressStore.ListForUser"

	addresses := []domain.Address{}
	err := s.db.From(tableAddresses).
		Select("*").
		Eq("user_id", userID).
		Order("is_default", false).
		Get(ctx, &addresses)
	if err != nil {
		logSwallowed(ctx, op, "failed to fetch addresses", err, "user_id", userID)
		return []domain.Address{}
	}
	return addresses
}

func (s *AddressStore) Get(ctx context.Context, id int64) *domain.Address {
	const op = "AddressStore.Get"

	var a domain.Address
	if err := s.db.From(tableAddresses).Select("*").Eq("id", id).Single().Get(ctx, &a); err != nil {
		logSwallowed(ctx, op, "failed to fetch address", err, "address_id", id)
		return nil
	}
	return &a
}

// Create stores a new address. A new default address replaces the
// previous default.
func (s *AddressStore) Create(ctx context.Context, addr domain.Address) *domain.Address {
	const op = "AddressStore.Create"

	if addr.IsDefault && !s.ClearDefault(ctx, addr.UserID) {
		return nil
	}

	addr.ID = 0
	var created domain.Address
	if err := s.db.From(tableAddresses).Single().Insert(ctx, addr, &created); err != nil {
		logSwallowed(ctx, op, "failed to create address", err, "user_id", addr.UserID)
		return nil
	}
	return &created
}

func (s *AddressStore) Update(ctx context.Context, id int64, addr domain.Address) *domain.Address {
	const op = "AddressStore.Update"

	if addr.IsDefault && !s.ClearDefault(ctx, addr.UserID) {
		return nil
	}

	addr.ID = 0
	var updated domain.Address
	if err := s.db.From(tableAddresses).Eq("id", id).Single().Update(ctx, addr, &updated); err != nil {
		logSwallowed(ctx, op, "failed to update address", err, "address_id", id)
		return nil
	}
	return &updated
}

func (s *AddressStore) Delete(ctx context.Context, id int64) bool {
	const op = "AddressStore.Delete"

	if err := s.db.From(tableAddresses).Eq("id", id).Delete(ctx); err != nil {
		logSwallowed(ctx, op, "failed to delete address", err, "address_id", id)
		return false
	}
	return true
}

// ClearDefault unsets the default flag on all of the user's addresses.
func (s *AddressStore) ClearDefault(ctx context.Context, userID string) bool {
	const op = "AddressStore.ClearDefault"

	err := s.db.From(tableAddresses).
		Eq("user_id", userID).
		Eq("is_default", true).
		Update(ctx, map[string]any{"is_default": false}, nil)
	if err != nil {
		logSwallowed(ctx, op, "failed to clear default address", err, "user_id", userID)
		return false
	}
	return true
}
