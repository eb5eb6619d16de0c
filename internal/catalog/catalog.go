// Package catalog resolves products for carts and orders. Product CRUD lives
// elsewhere; this package only reads.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bazaar/internal/apperr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// lookupTimeout bounds a shared cache-or-source lookup. The lookup outlives
// the caller that started it, so it cannot use that caller's deadline.
const lookupTimeout = 5 * time.Second

var (
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "product not found")
	ErrCacheMiss       = errors.New("cache miss")
)

type Product struct {
	ID       string          `json:"id"`
	SellerID string          `json:"sellerId"`
	Title    string          `json:"title"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Active   bool            `json:"active"`
}

// Reader looks products up by id. Get returns ErrProductNotFound for unknown
// or inactive products; GetMany omits them from the result.
type Reader interface {
	Get(ctx context.Context, id string) (*Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Product, error)
}

// Cache stores products by id. Get returns ErrCacheMiss when absent.
type Cache interface {
	Get(ctx context.Context, id string) (*Product, error)
	Set(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// CachedReader is a read-through cache in front of a Reader.
type CachedReader struct {
	source Reader
	cache  Cache
	sfg    singleflight.Group
	logger *zap.Logger
}

func NewCachedReader(source Reader, cache Cache, logger *zap.Logger) *CachedReader {
	return &CachedReader{
		source: source,
		cache:  cache,
		logger: logger.Named("catalog"),
	}
}

func (r *CachedReader) Get(ctx context.Context, id string) (*Product, error) {
	ch := r.sfg.DoChan(id, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		p, err := r.cache.Get(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("product cache read failed", zap.String("product_id", id), zap.Error(err))
		}

		p, err = r.source.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, p); err != nil {
			r.logger.Warn("product cache write failed", zap.String("product_id", id), zap.Error(err))
		}
		return p, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v := res.Val
	// Copy so callers sharing a flight never alias each other.
	p := *v.(*Product)
	return &p, nil
}

func (r *CachedReader) GetMany(ctx context.Context, ids []string) (map[string]*Product, error) {
	out := make(map[string]*Product, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, id)
		if errors.Is(err, ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		out[id] = p
	}
	return out, nil
}

// Invalidate drops a product from the cache after an external price change.
func (r *CachedReader) Invalidate(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, id)
}
