// Package reconcile finishes the cart-clear step of checkout from the event
// stream. Clearing is conditional on the cart version recorded at checkout,
// so redelivered or late events never wipe a cart refilled since.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/infrastructure/store"
	"go.uber.org/zap"
)

type CartClearer interface {
	ClearIfUnchanged(ctx context.Context, ownerID string, version int) (bool, error)
}

type Reconciler struct {
	carts  CartClearer
	logger *zap.Logger
}

func New(carts CartClearer, logger *zap.Logger) *Reconciler {
	return &Reconciler{carts: carts, logger: logger.Named("reconciler")}
}

// HandleMessage decodes a journal event published to Kafka.
func (r *Reconciler) HandleMessage(ctx context.Context, _, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return r.HandleEvent(ctx, event)
}

func (r *Reconciler) HandleEvent(ctx context.Context, event store.Event) error {
	if event.AggregateType != order.AggregateType || event.EventType != order.EventOrderPlaced {
		return nil
	}

	var placed order.OrderPlaced
	if err := json.Unmarshal(event.Data, &placed); err != nil {
		return fmt.Errorf("decode %s %s: %w", event.EventType, event.ID, err)
	}
	if placed.OwnerID == "" {
		return fmt.Errorf("%s %s has no owner", event.EventType, event.ID)
	}
	if placed.CartVersion < 0 {
		r.logger.Warn("cart version unknown, leaving cart alone",
			zap.String("order_id", placed.OrderID), zap.String("owner_id", placed.OwnerID))
		return nil
	}

	cleared, err := r.carts.ClearIfUnchanged(ctx, placed.OwnerID, placed.CartVersion)
	if err != nil {
		return fmt.Errorf("clear cart for order %s: %w", placed.OrderID, err)
	}
	r.logger.Debug("order placed reconciled",
		zap.String("order_id", placed.OrderID),
		zap.String("owner_id", placed.OwnerID),
		zap.Int("cart_version", placed.CartVersion),
		zap.Bool("cleared", cleared))
	return nil
}
