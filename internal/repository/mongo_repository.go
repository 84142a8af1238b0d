package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionCarts = "carts"
	// abandonedCartTTL drops carts that have not changed for this long.
	abandonedCartTTL = 30 * 24 * time.Hour
)

// cartDocument is the stored shape of a cart. Prices are kept as decimal
// strings so no precision is lost.
type cartDocument struct {
	OwnerID   string         `bson:"owner_id"`
	Lines     []lineDocument `bson:"lines"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	ProductID   string `bson:"product_id"`
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
	Price       string `bson:"price"`
	Image       string `bson:"image,omitempty"`
	Stock       *int   `bson:"stock,omitempty"`
	SKU         string `bson:"sku,omitempty"`
	CategoryID  *int64 `bson:"category_id,omitempty"`
	Quantity    int    `bson:"quantity"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(collectionCarts)}
}

func (m *MongoRepository) GetCart(ctx context.Context, ownerID string) (*domain.CartRecord, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(doc)
}

func (m *MongoRepository) UpsertCart(ctx context.Context, record *domain.CartRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	doc := toDocument(record)
	filter := bson.M{"owner_id": record.OwnerID}
	update := bson.M{
		"$set": bson.M{
			"lines":      doc.Lines,
			"updated_at": doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": doc.CreatedAt,
		},
	}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, ownerID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"owner_id": ownerID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(abandonedCartTTL.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func toDocument(r *domain.CartRecord) cartDocument {
	lines := make([]lineDocument, 0, len(r.Lines))
	for _, l := range r.Lines {
		p := l.Product
		lines = append(lines, lineDocument{
			ProductID:   p.ProductID,
			Title:       p.Title,
			Description: p.Description,
			Price:       p.Price.String(),
			Image:       p.Image,
			Stock:       p.Stock,
			SKU:         p.SKU,
			CategoryID:  p.CategoryID,
			Quantity:    l.Quantity,
		})
	}
	return cartDocument{
		OwnerID:   r.OwnerID,
		Lines:     lines,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromDocument(doc cartDocument) (*domain.CartRecord, error) {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for product %s: %w", l.Price, l.ProductID, err)
		}
		lines = append(lines, domain.CartLine{
			Product: domain.Product{
				ProductID:   l.ProductID,
				Title:       l.Title,
				Description: l.Description,
				Price:       price,
				Image:       l.Image,
				Stock:       l.Stock,
				SKU:         l.SKU,
				CategoryID:  l.CategoryID,
			},
			Quantity: l.Quantity,
		})
	}
	return &domain.CartRecord{
		OwnerID:   doc.OwnerID,
		Lines:     lines,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
