// Package app assembles services from configuration for the binaries.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/bazaar/internal/catalog"
	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/example/bazaar/internal/infrastructure/cache"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/example/bazaar/internal/infrastructure/store/memstore"
	"github.com/example/bazaar/internal/infrastructure/store/mongostore"
	"github.com/example/bazaar/internal/payment"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProductWriter seeds the catalog.
type ProductWriter interface {
	Upsert(ctx context.Context, p *catalog.Product) error
}

type Stores struct {
	Carts    cart.Repository
	Orders   order.Repository
	Users    user.Repository
	Products catalog.Reader
	Seeder   ProductWriter

	closers []func(context.Context) error
}

// Close releases every connection opened by the constructors in this package.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.StoreBackend {
	case "memory":
		products := memstore.NewProductStore()
		s.Carts = memstore.NewCartStore()
		s.Orders = memstore.NewOrderStore()
		s.Users = memstore.NewUserStore()
		s.Products = products
		s.Seeder = products
		logger.Warn("using in-memory stores, data is lost on restart")
	default:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		db, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Client().Disconnect)
		if err := mongostore.EnsureIndexes(connectCtx, db); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		products := mongostore.NewProductStore(db)
		s.Carts = mongostore.NewCartStore(db)
		s.Orders = mongostore.NewOrderStore(db)
		s.Users = mongostore.NewUserStore(db)
		s.Products = products
		s.Seeder = products
		logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = s.Close(ctx)
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		s.Products = catalog.NewCachedReader(s.Products, cache.NewProductCache(client, cfg.ProductCacheTTL), logger)
		logger.Info("product cache enabled", zap.String("redis", cfg.RedisAddr))
	}

	if cfg.ProductSeedFile != "" {
		n, err := SeedProducts(ctx, s.Seeder, cfg.ProductSeedFile)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		logger.Info("catalog seeded", zap.Int("products", n), zap.String("file", cfg.ProductSeedFile))
	}
	return s, nil
}

// SeedProducts upserts a JSON array of products.
func SeedProducts(ctx context.Context, w ProductWriter, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var products []catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range products {
		if err := w.Upsert(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("seed product %s: %w", products[i].ID, err)
		}
	}
	return len(products), nil
}

// OpenJournal returns the configured event journal. Postgres and memory
// journals publish through publisher when it is non-nil; DynamoDB relies
// on its Kinesis stream instead.
func OpenJournal(ctx context.Context, cfg config.Config, publisher store.Publisher, logger *zap.Logger) (store.Journal, func() error, error) {
	switch cfg.JournalBackend {
	case "postgres":
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := store.MigratePostgres(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("journal: postgres")
		return store.NewPostgresJournal(db, publisher), db.Close, nil
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		logger.Info("journal: dynamodb", zap.String("table", cfg.DynamoTable))
		return store.NewDynamoJournal(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), func() error { return nil }, nil
	default:
		logger.Info("journal: memory")
		return store.NewMemoryJournal(publisher), func() error { return nil }, nil
	}
}

// NewGateway returns the Stripe adapter, or a gateway that refuses every
// charge when no secret key is configured.
func NewGateway(cfg config.Payment, logger *zap.Logger) (payment.Gateway, error) {
	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, stripe payments will fail")
		return payment.Disabled{}, nil
	}
	return payment.NewStripeGateway(payment.Config{
		SecretKey: cfg.StripeSecretKey,
		ReturnURL: cfg.ReturnURL,
		Timeout:   cfg.Timeout,
	}, logger)
}
