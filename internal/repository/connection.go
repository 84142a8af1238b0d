package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	appName      = "storefront"
	dialTimeout  = 10 * time.Second
	pingTimeout = 3 * time.Second
)

// ConnectMongoDB dials the cart store and returns the named database once the
// primary answers a ping.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetConnectTimeout(dialTimeout).
		SetServerSelectionTimeout(dialTimeout/2).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetRetryWrites(true))
	if err != nil {
		return nil, fmt.Errorf("connect cart store: %w", err)
	}

	db := client.Database(database)
	if err := PingMongoDB(ctx, db); err != nil {
		_ = DisconnectMongoDB(db)
		return nil, err
	}
	return db, nil
}

// PingMongoDB checks the primary within pingTimeout.
func PingMongoDB(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping cart store: %w", err)
	}
	return nil
}

func DisconnectMongoDB(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	return db.Client().Disconnect(ctx)
}
