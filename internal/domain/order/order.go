// Package order turns checkouts into immutable orders and tracks their
// provider and driver lifecycles.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentPaypal PaymentMethod = "paypal"
	PaymentStripe PaymentMethod = "stripe"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPaypal, PaymentStripe:
		return true
	}
	return false
}

// Item is priced from the catalog at checkout and never changes afterwards.
type Item struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Info      string `json:"info,omitempty"`
}

// Order is immutable except for its two status tracks and driver
// assignment. PlatformProfit + ProviderProfit == Total always holds.
type Order struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"ownerId"`
	ProviderID       string          `json:"providerId"`
	Items            []Item          `json:"items"`
	Total            decimal.Decimal `json:"total"`
	PlatformProfit   decimal.Decimal `json:"platformProfit"`
	ProviderProfit   decimal.Decimal `json:"providerProfit"`
	Delivery         Address         `json:"deliveryAddress"`
	Contact          Contact         `json:"contact"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	DriverID         string          `json:"driverId,omitempty"`
	DriverStatus     DriverStatus    `json:"driverStatus"`
	ProviderStatus   ProviderStatus  `json:"providerStatus"`
	CartVersion      int             `json:"cartVersion"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
