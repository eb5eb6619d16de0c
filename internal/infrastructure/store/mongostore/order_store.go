package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/infrastructure/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderStore struct {
	collection *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{collection: db.Collection(ordersCollection)}
}

func (s *OrderStore) Insert(ctx context.Context, o *order.Order) error {
	_, err := s.collection.InsertOne(ctx, toOrderDoc(o, o.Version))
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	var doc orderDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toOrder()
}

func (s *OrderStore) Update(ctx context.Context, o *order.Order) error {
	doc := toOrderDoc(o, o.Version+1)
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": o.ID, "version": o.Version}, doc)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.collection.CountDocuments(ctx, bson.M{"_id": o.ID})
		if err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrVersionConflict
	}
	o.Version = doc.Version
	return nil
}

func (s *OrderStore) ListByOwner(ctx context.Context, ownerID string) ([]*order.Order, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID})
}

func (s *OrderStore) ListByProvider(ctx context.Context, providerID string) ([]*order.Order, error) {
	return s.find(ctx, bson.M{"provider_id": providerID})
}

func (s *OrderStore) find(ctx context.Context, filter bson.M) ([]*order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	orders := make([]*order.Order, 0, len(docs))
	for _, doc := range docs {
		o, err := doc.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
