package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/infrastructure/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type CartStore struct {
	collection *mongo.Collection
}

func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{collection: db.Collection(cartsCollection)}
}

func (s *CartStore) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	var doc cartDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.toCart()
}

// Save inserts a new cart (Version 0) or replaces the document whose version
// still matches c.Version.
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	doc := toCartDoc(c, c.Version+1)

	if c.Version == 0 {
		_, err := s.collection.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert cart: %w", err)
		}
		c.Version = doc.Version
		return nil
	}

	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": c.OwnerID, "version": c.Version}, doc)
	if err != nil {
		return fmt.Errorf("failed to replace cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrVersionConflict
	}
	c.Version = doc.Version
	return nil
}
