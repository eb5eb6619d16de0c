package order

import "time"

const AggregateType = "Order"

const (
	EventOrderPlaced           = "OrderPlaced"
	EventProviderStatusChanged = "ProviderStatusChanged"
	EventDriverStatusChanged   = "DriverStatusChanged"
)

// OrderPlaced carries what the cart reconciler needs to finish checkout.
type OrderPlaced struct {
	OrderID       string    `json:"order_id"`
	OwnerID       string    `json:"owner_id"`
	ProviderID    string    `json:"provider_id"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	CartVersion   int       `json:"cart_version"`
	PlacedAt      time.Time `json:"placed_at"`
}

type ProviderStatusChanged struct {
	OrderID   string         `json:"order_id"`
	From      ProviderStatus `json:"from"`
	To        ProviderStatus `json:"to"`
	ActorID   string         `json:"actor_id"`
	ChangedAt time.Time      `json:"changed_at"`
}

type DriverStatusChanged struct {
	OrderID   string       `json:"order_id"`
	From      DriverStatus `json:"from"`
	To        DriverStatus `json:"to"`
	DriverID  string       `json:"driver_id,omitempty"`
	ActorID   string       `json:"actor_id"`
	ChangedAt time.Time    `json:"changed_at"`
}
