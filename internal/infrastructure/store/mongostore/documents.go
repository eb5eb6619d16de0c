package mongostore

import (
	"fmt"
	"time"

	"github.com/example/bazaar/internal/catalog"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/example/bazaar/internal/money"
)

// Amounts are stored as decimal strings so no float ever holds a price.

type cartItemDoc struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
	LineTotal string `bson:"line_total"`
}

type cartDoc struct {
	OwnerID    string        `bson:"_id"`
	ProviderID string        `bson:"provider_id"`
	Items      []cartItemDoc `bson:"items"`
	Total      string        `bson:"total"`
	Version    int           `bson:"version"`
	CreatedAt  time.Time     `bson:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at"`
}

func toCartDoc(c *cart.Cart, version int) cartDoc {
	items := make([]cartItemDoc, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemDoc{ProductID: it.ProductID, Quantity: it.Quantity, LineTotal: it.LineTotal.String()})
	}
	return cartDoc{
		OwnerID:    c.OwnerID,
		ProviderID: c.ProviderID,
		Items:      items,
		Total:      c.Total.String(),
		Version:    version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (d cartDoc) toCart() (*cart.Cart, error) {
	c := &cart.Cart{
		OwnerID:    d.OwnerID,
		ProviderID: d.ProviderID,
		Items:      make([]cart.Item, 0, len(d.Items)),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	for _, it := range d.Items {
		lineTotal, err := money.Parse(it.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("cart %s line %s: %w", d.OwnerID, it.ProductID, err)
		}
		c.Items = append(c.Items, cart.Item{ProductID: it.ProductID, Quantity: it.Quantity, LineTotal: lineTotal})
	}
	total, err := money.Parse(d.Total)
	if err != nil {
		return nil, fmt.Errorf("cart %s total: %w", d.OwnerID, err)
	}
	c.Total = total
	return c, nil
}

type orderItemDoc struct {
	ProductID string `bson:"product_id"`
	Title     string `bson:"title"`
	Quantity  int    `bson:"quantity"`
	UnitPrice string `bson:"unit_price"`
}

type orderDoc struct {
	ID               string         `bson:"_id"`
	OwnerID          string         `bson:"owner_id"`
	ProviderID       string         `bson:"provider_id"`
	Items            []orderItemDoc `bson:"items"`
	Total            string         `bson:"total"`
	PlatformProfit   string         `bson:"platform_profit"`
	ProviderProfit   string         `bson:"provider_profit"`
	Delivery         order.Address  `bson:"delivery_address"`
	Contact          order.Contact  `bson:"contact"`
	PaymentMethod    string         `bson:"payment_method"`
	PaymentReference string         `bson:"payment_reference,omitempty"`
	DriverID         string         `bson:"driver_id,omitempty"`
	DriverStatus     string         `bson:"driver_status"`
	ProviderStatus   string         `bson:"provider_status"`
	CartVersion      int            `bson:"cart_version"`
	Version          int            `bson:"version"`
	CreatedAt        time.Time      `bson:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at"`
}

func toOrderDoc(o *order.Order, version int) orderDoc {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDoc{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
		})
	}
	return orderDoc{
		ID:               o.ID,
		OwnerID:          o.OwnerID,
		ProviderID:       o.ProviderID,
		Items:            items,
		Total:            o.Total.String(),
		PlatformProfit:   o.PlatformProfit.String(),
		ProviderProfit:   o.ProviderProfit.String(),
		Delivery:         o.Delivery,
		Contact:          o.Contact,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentReference: o.PaymentReference,
		DriverID:         o.DriverID,
		DriverStatus:     string(o.DriverStatus),
		ProviderStatus:   string(o.ProviderStatus),
		CartVersion:      o.CartVersion,
		Version:          version,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (d orderDoc) toOrder() (*order.Order, error) {
	o := &order.Order{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		ProviderID:       d.ProviderID,
		Items:            make([]order.Item, 0, len(d.Items)),
		Delivery:         d.Delivery,
		Contact:          d.Contact,
		PaymentMethod:    order.PaymentMethod(d.PaymentMethod),
		PaymentReference: d.PaymentReference,
		DriverID:         d.DriverID,
		DriverStatus:     order.DriverStatus(d.DriverStatus),
		ProviderStatus:   order.ProviderStatus(d.ProviderStatus),
		CartVersion:      d.CartVersion,
		Version:          d.Version,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	for _, it := range d.Items {
		price, err := money.Parse(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("order %s item %s: %w", d.ID, it.ProductID, err)
		}
		o.Items = append(o.Items, order.Item{ProductID: it.ProductID, Title: it.Title, Quantity: it.Quantity, UnitPrice: price})
	}
	var err error
	if o.Total, err = money.Parse(d.Total); err != nil {
		return nil, fmt.Errorf("order %s total: %w", d.ID, err)
	}
	if o.PlatformProfit, err = money.Parse(d.PlatformProfit); err != nil {
		return nil, fmt.Errorf("order %s platform profit: %w", d.ID, err)
	}
	if o.ProviderProfit, err = money.Parse(d.ProviderProfit); err != nil {
		return nil, fmt.Errorf("order %s provider profit: %w", d.ID, err)
	}
	return o, nil
}

type productDoc struct {
	ID       string `bson:"_id"`
	SellerID string `bson:"seller_id"`
	Title    string `bson:"title"`
	Image    string `bson:"image"`
	Price    string `bson:"price"`
	Active   bool   `bson:"active"`
}

func toProductDoc(p *catalog.Product) productDoc {
	return productDoc{
		ID:       p.ID,
		SellerID: p.SellerID,
		Title:    p.Title,
		Image:    p.Image,
		Price:    p.Price.String(),
		Active:   p.Active,
	}
}

func (d productDoc) toProduct() (*catalog.Product, error) {
	price, err := money.Parse(d.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s price: %w", d.ID, err)
	}
	return &catalog.Product{
		ID:       d.ID,
		SellerID: d.SellerID,
		Title:    d.Title,
		Image:    d.Image,
		Price:    price,
		Active:   d.Active,
	}, nil
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toUserDoc(u *user.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (d userDoc) toUser() *user.User {
	return &user.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		Role:         user.Role(d.Role),
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}
