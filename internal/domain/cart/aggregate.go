// Package cart implements the single-provider shopping cart.
package cart

import (
	"time"

	"github.com/example/bazaar/internal/money"
	"github.com/shopspring/decimal"
)

// Item is one cart line. LineTotal is the stored amount; the unit price is
// always derived from it.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

func (i Item) UnitPrice() decimal.Decimal {
	unit, err := money.ComputeUnitPrice(i.LineTotal, i.Quantity)
	if err != nil {
		return decimal.Zero
	}
	return unit
}

func (i Item) Subtotal() decimal.Decimal { return i.LineTotal }

// Cart belongs to exactly one owner. A non-empty cart holds items of one
// provider only. Version increases on every persisted write.
type Cart struct {
	OwnerID    string          `json:"ownerId"`
	ProviderID string          `json:"providerId"`
	Items      []Item          `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Line is a resolved add request: the product exists and its provider is known.
type Line struct {
	ProductID string
	Quantity  int
	LinePrice decimal.Decimal
}

func New(ownerID string, now time.Time) *Cart {
	return &Cart{
		OwnerID:   ownerID,
		Items:     []Item{},
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges lines from providerID into the cart. A non-empty cart owned by
// another provider is left untouched. Merging adds both quantity and line
// price, so the merged subtotal is the sum of the two spends.
func (c *Cart) Add(providerID string, lines []Line) error {
	if len(lines) == 0 {
		return ErrNoItems
	}
	for _, l := range lines {
		if err := validateLine(l); err != nil {
			return err
		}
	}
	if !c.IsEmpty() && c.ProviderID != providerID {
		return ErrMultiProviderConflict
	}

	c.ProviderID = providerID
	for _, l := range lines {
		if idx := c.find(l.ProductID); idx >= 0 {
			c.Items[idx].Quantity += l.Quantity
			c.Items[idx].LineTotal = c.Items[idx].LineTotal.Add(l.LinePrice)
			continue
		}
		c.Items = append(c.Items, Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			LineTotal: l.LinePrice,
		})
	}
	c.recalculate()
	return nil
}

// SetQuantity keeps the line's unit price and rescales its total.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	idx := c.find(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	item := &c.Items[idx]
	lineTotal, err := money.RescaleLine(item.LineTotal, item.Quantity, quantity)
	if err != nil {
		return ErrInvalidQuantity
	}
	item.LineTotal = lineTotal
	item.Quantity = quantity
	c.recalculate()
	return nil
}

// Remove reports whether the product was in the cart.
func (c *Cart) Remove(productID string) bool {
	idx := c.find(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.recalculate()
	return true
}

func (c *Cart) Clear() {
	c.Items = []Item{}
	c.recalculate()
}

func (c *Cart) recalculate() {
	c.Total = money.SumLineItems(c.Items)
	if c.IsEmpty() {
		c.ProviderID = ""
	}
}

func (c *Cart) clone() *Cart {
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp
}

func validateLine(l Line) error {
	if l.ProductID == "" {
		return ErrInvalidProduct
	}
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.LinePrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}
