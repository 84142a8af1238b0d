package store

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/remote"
)

type ReviewUpdate struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ReviewStore struct {
	db  *remote.Client
	now func() time.Time
}

func NewReviewStore(db *remote.Client) *ReviewStore {
	return &ReviewStore{db: db, now: time.Now}
}

// ForProduct returns a product's reviews, newest first, with author details.
func (s *ReviewStore) ForProduct(ctx context.Context, productID string) []domain.Review {
	const op = "ReviewStore.ForProduct"

	reviews := []domain.Review{}
	err := s.db.From(tableReviews).
		Select(`*, profile:user_id(username, avatar_url)`).
		Eq("product_id", productID).
		Order("created_at", false).
		Get(ctx, &reviews)
	if err != nil {
		logSwallowed(ctx, op, "failed to fetch product reviews", err, "product_id", productID)
		return []domain.Review{}
	}
	return reviews
}

func (s *ReviewStore) ForUser(ctx context.Context, userID string) []domain.Review {
	const op = "ReviewStore.ForUser"

	reviews := []domain.Review{}
	err := s.db.From(tableReviews).
		Select(`*, product:product_id(product_id, title, image)`).
		Eq("user_id", userID).
		Order("created_at", false).
		Get(ctx, &reviews)
	if err != nil {
		logSwallowed(ctx, op, "failed to fetch user reviews", err, "user_id", userID)
		return []domain.Review{}
	}
	return reviews
}

// Create stores r, or updates the rating and comment of the review the same
// user already left on the same product.
func (s *ReviewStore) Create(ctx context.Context, r domain.Review) *domain.Review {
	const op = "ReviewStore.Create"

	var existing []struct {
		ID int64 `json:"id"`
	}
	err := s.db.From(tableReviews).
		Select("id").
		Eq("user_id", r.UserID).
		Eq("product_id", r.ProductID).
		Limit(1).
		Get(ctx, &existing)
	if err != nil {
		logSwallowed(ctx, op, "failed to look up existing review", err, "user_id", r.UserID, "product_id", r.ProductID)
		return nil
	}
	if len(existing) > 0 {
		return s.Update(ctx, existing[0].ID, ReviewUpdate{Rating: r.Rating, Comment: r.Comment})
	}

	now := s.now().UTC()
	r.ID = 0
	r.CreatedAt = &now
	r.Profile = nil
	r.Product = nil

	var created domain.Review
	if err := s.db.From(tableReviews).Single().Insert(ctx, r, &created); err != nil {
		logSwallowed(ctx, op, "failed to create review", err, "user_id", r.UserID, "product_id", r.ProductID)
		return nil
	}
	return &created
}

func (s *ReviewStore) Update(ctx context.Context, id int64, upd ReviewUpdate) *domain.Review {
	const op = "ReviewStore.Update"

	var updated domain.Review
	if err := s.db.From(tableReviews).Eq("id", id).Single().Update(ctx, upd, &updated); err != nil {
		logSwallowed(ctx, op, "failed to update review", err, "review_id", id)
		return nil
	}
	return &updated
}

func (s *ReviewStore) Delete(ctx context.Context, id int64) bool {
	const op = "ReviewStore.Delete"

	if err := s.db.From(tableReviews).Eq("id", id).Delete(ctx); err != nil {
		logSwallowed(ctx, op, "failed to delete review", err, "review_id", id)
		return false
	}
	return true
}
