package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bazaar/internal/catalog"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxWriteAttempts bounds the reload-and-retry loop on version conflicts.
const maxWriteAttempts = 3

// Repository persists whole cart documents.
//
// Save writes c only if the stored version still equals c.Version (a cart
// with Version 0 must not exist yet) and bumps c.Version on success. A stale
// write returns store.ErrVersionConflict.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

// Request is one item of an add-to-cart call as sent by the client.
type Request struct {
	ProductID string
	Quantity  int
	LinePrice decimal.Decimal
}

type Service struct {
	repo     Repository
	products catalog.Reader
	locks    *KeyedMutex
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, products catalog.Reader, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		locks:    NewKeyedMutex(),
		logger:   logger.Named("cart"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddItems resolves every product, then merges the lines into the owner's
// cart, creating it on first use.
func (s *Service) AddItems(ctx context.Context, ownerID string, reqs []Request) (*Cart, error) {
	if len(reqs) == 0 {
		return nil, ErrNoItems
	}

	lines := make([]Line, 0, len(reqs))
	for _, r := range reqs {
		l := Line{ProductID: r.ProductID, Quantity: r.Quantity, LinePrice: r.LinePrice}
		if err := validateLine(l); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	providerID := ""
	for i, l := range lines {
		p, err := s.products.Get(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", l.ProductID, err)
		}
		if i == 0 {
			providerID = p.SellerID
		} else if p.SellerID != providerID {
			return nil, ErrMultiProviderConflict
		}
	}

	return s.mutate(ctx, ownerID, true, func(c *Cart) (bool, error) {
		if err := c.Add(providerID, lines); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Service) SetQuantity(ctx context.Context, ownerID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, ownerID, false, func(c *Cart) (bool, error) {
		if err := c.SetQuantity(productID, quantity); err != nil {
			return false, err
		}
		return true, nil
	})
}

// RemoveItem is idempotent: an absent product returns the cart unchanged.
func (s *Service) RemoveItem(ctx context.Context, ownerID, productID string) (*Cart, error) {
	return s.mutate(ctx, ownerID, false, func(c *Cart) (bool, error) {
		return c.Remove(productID), nil
	})
}

func (s *Service) Clear(ctx context.Context, ownerID string) (*Cart, error) {
	return s.mutate(ctx, ownerID, false, func(c *Cart) (bool, error) {
		if c.IsEmpty() {
			return false, nil
		}
		c.Clear()
		return true, nil
	})
}

// ClearIfUnchanged clears the cart only when its stored version is at most
// version, so a cart refilled after checkout survives a late clear. It
// reports whether a write happened.
func (s *Service) ClearIfUnchanged(ctx context.Context, ownerID string, version int) (bool, error) {
	cleared := false
	_, err := s.mutate(ctx, ownerID, false, func(c *Cart) (bool, error) {
		if c.Version > version || c.IsEmpty() {
			return false, nil
		}
		c.Clear()
		cleared = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return cleared, nil
}

// CurrentVersion returns the stored version, or 0 when the owner has no cart.
func (s *Service) CurrentVersion(ctx context.Context, ownerID string) (int, error) {
	c, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cart: %w", err)
	}
	return c.Version, nil
}

// mutate runs fn against the freshly loaded cart under the owner lock and
// persists the result when fn reports a change. create controls whether a
// missing cart is materialized for fn or answered with an empty cart.
func (s *Service) mutate(ctx context.Context, ownerID string, create bool, fn func(c *Cart) (bool, error)) (*Cart, error) {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		c, err := s.repo.Get(ctx, ownerID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			c = New(ownerID, s.now())
			if !create {
				if _, err := fn(c); err != nil {
					return nil, err
				}
				return New(ownerID, c.CreatedAt), nil
			}
		case err != nil:
			return nil, fmt.Errorf("load cart: %w", err)
		}

		snapshot := c.clone()
		changed, err := fn(c)
		if err != nil {
			return nil, err
		}
		if !changed {
			return snapshot, nil
		}

		c.UpdatedAt = s.now()
		err = s.repo.Save(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if attempt >= maxWriteAttempts {
			s.logger.Warn("cart write abandoned after version conflicts",
				zap.String("owner_id", ownerID), zap.Int("attempts", attempt))
			return nil, ErrConcurrentModification
		}
		s.logger.Debug("cart version conflict, reloading",
			zap.String("owner_id", ownerID), zap.Int("attempt", attempt))
	}
}
