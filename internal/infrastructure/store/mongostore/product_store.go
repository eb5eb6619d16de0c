package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bazaar/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductStore is the catalog.Reader backed by the products collection.
type ProductStore struct {
	collection *mongo.Collection
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{collection: db.Collection(productsCollection)}
}

func (s *ProductStore) Get(ctx context.Context, id string) (*catalog.Product, error) {
	var doc productDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "active": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toProduct()
}

func (s *ProductStore) GetMany(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	out := make(map[string]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		p, err := doc.toProduct()
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return out, nil
}

func (s *ProductStore) Upsert(ctx context.Context, p *catalog.Product) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, toProductDoc(p), opts); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}
