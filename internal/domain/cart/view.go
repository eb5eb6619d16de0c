package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

// ViewItem is a cart line, joined with the product's current display fields
// when rendered by GetCart. Available is false when the product has left the
// catalog and nil when no join was made.
type ViewItem struct {
	ProductID    string           `json:"productId"`
	Quantity     int              `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	LineTotal    decimal.Decimal  `json:"lineTotal"`
	Title        string           `json:"title,omitempty"`
	Image        string           `json:"image,omitempty"`
	CurrentPrice *decimal.Decimal `json:"currentPrice,omitempty"`
	Available    *bool            `json:"available,omitempty"`
}

type View struct {
	OwnerID    string          `json:"ownerId"`
	ProviderID string          `json:"providerId,omitempty"`
	Items      []ViewItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Version    int             `json:"version"`
}

// GetCart returns the owner's cart for display. A missing cart is an empty view.
func (s *Service) GetCart(ctx context.Context, ownerID string) (*View, error) {
	c, err := s.repo.Get(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return &View{OwnerID: ownerID, Items: []ViewItem{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart products: %w", err)
	}

	v := &View{
		OwnerID:    c.OwnerID,
		ProviderID: c.ProviderID,
		Items:      make([]ViewItem, 0, len(c.Items)),
		Total:      c.Total,
		Version:    c.Version,
	}
	for _, it := range c.Items {
		vi := ViewItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice(),
			LineTotal: it.LineTotal,
		}
		p, ok := products[it.ProductID]
		if ok {
			price := p.Price
			vi.Title = p.Title
			vi.Image = p.Image
			vi.CurrentPrice = &price
		}
		vi.Available = &ok
		v.Items = append(v.Items, vi)
	}
	return v, nil
}

// ViewOf renders a cart without catalog fields, for mutation responses.
func ViewOf(c *Cart) *View {
	v := &View{
		OwnerID:    c.OwnerID,
		ProviderID: c.ProviderID,
		Items:      make([]ViewItem, 0, len(c.Items)),
		Total:      c.Total,
		Version:    c.Version,
	}
	for _, it := range c.Items {
		v.Items = append(v.Items, ViewItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice(),
			LineTotal: it.LineTotal,
		})
	}
	return v
}
