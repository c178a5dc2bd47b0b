// Package mongostore implements the identity and product stores on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/catalog/catalog-go/internal/repository"
)

const (
	usersCollection    = "users"
	productsCollection = "products"
)

// DB owns the MongoDB client. Open it once at startup and Close it at shutdown.
type DB struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Connect opens a client, verifies it with a ping and ensures the collection indexes.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*DB, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	d := &DB{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
	}
	if err := d.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("connected to mongodb", "database", database)
	return d, nil
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Users returns the identity store backed by the users collection.
func (d *DB) Users() *UserStore {
	return &UserStore{coll: d.db.Collection(usersCollection), timeout: d.timeout}
}

// Products returns the product store backed by the products collection.
func (d *DB) Products() *ProductStore {
	return &ProductStore{coll: d.db.Collection(productsCollection), timeout: d.timeout}
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users email index: %w", err)
	}

	_, err = d.db.Collection(productsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "creator_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating products creator index: %w", err)
	}

	return nil
}

// classify maps driver failures onto repository errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case repository.IsContextError(err),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err),
		errors.Is(err, mongo.ErrClientDisconnected):
		return repository.Unavailable(err)
	default:
		return err
	}
}

func parseObjectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, repository.ErrInvalidID
	}
	return oid, nil
}
