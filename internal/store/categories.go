package store

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

type CategoryStore struct {
	db *remote.Client
}

func NewCategoryStore(db *remote.Client) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) List(ctx context.Context) []domain.Category {
	const op = "CategoryStore.List"

	categories := []domain.Category{}
	if err := s.db.From(tableCategories).Select("*").Order("name", true).Get(ctx, &categories); err != nil {
		logSwallowed(ctx, op, "failed to fetch categories", err)
		return []domain.Category{}
	}
	return categories
}

func (s *CategoryStore) Get(ctx context.Context, id int64) *domain.Category {
	const op = "CategoryStore.Get"

	var c domain.Category
	if err := s.db.From(tableCategories).Select("*").Eq("id", id).Single().Get(ctx, &c); err != nil {
		logSwallowed(ctx, op, "failed to fetch category", err, "category_id", id)
		return nil
	}
	return &c
}

func (s *CategoryStore) Subcategories(ctx context.Context, parentID int64) []domain.Category {
	const op = "CategoryStore.Subcategories"

	categories := []domain.Category{}
	err := s.db.From(tableCategories).Select("*").Eq("parent_id", parentID).Order("name", true).Get(ctx, &categories)
	if err != nil {
		logSwallowed(ctx, op, "failed to fetch subcategories", err, "parent_id", parentID)
		return []domain.Category{}
	}
	return categories
}
