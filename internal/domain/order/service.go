package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bazaar/internal/catalog"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/example/bazaar/internal/money"
	"github.com/example/bazaar/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxWriteAttempts = 3

// Repository persists orders. Update writes only when the stored version
// equals o.Version and bumps o.Version; a stale write returns
// store.ErrVersionConflict. Lists are newest first.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByOwner(ctx context.Context, ownerID string) ([]*Order, error)
	ListByProvider(ctx context.Context, providerID string) ([]*Order, error)
}

// CartClearer is the cart side of the checkout saga.
type CartClearer interface {
	CurrentVersion(ctx context.Context, ownerID string) (int, error)
	ClearIfUnchanged(ctx context.Context, ownerID string, version int) (bool, error)
}

type Actor struct {
	ID   string
	Role user.Role
}

type CheckoutItem struct {
	ProductID   string
	Quantity    int
	ClientPrice decimal.Decimal
}

// Checkout is an order request. ClientPrice and ClientTotal are display
// hints; the catalog price is authoritative.
type Checkout struct {
	OwnerID       string
	Items         []CheckoutItem
	ClientTotal   decimal.NullDecimal
	Delivery      Address
	Contact       Contact
	PaymentMethod PaymentMethod
	PaymentToken  string
}

type StatusUpdate struct {
	ProviderStatus *ProviderStatus
	DriverStatus   *DriverStatus
}

type Service struct {
	repo     Repository
	products catalog.Reader
	payments payment.Gateway
	carts    CartClearer
	journal  store.Journal
	currency string
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewService(repo Repository, products catalog.Reader, payments payment.Gateway, carts CartClearer,
	journal store.Journal, currency string, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		payments: payments,
		carts:    carts,
		journal:  journal,
		currency: currency,
		logger:   logger.Named("order"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Create places an order. Payment happens before anything is written, so a
// failed payment leaves no order behind. Clearing the cart afterwards is
// best effort; the OrderPlaced event lets the reconciler finish it.
func (s *Service) Create(ctx context.Context, in Checkout) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return nil, ErrProviderNotFound
		}
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	needsConfirmation := payment.RequiresConfirmation(string(in.PaymentMethod))
	if needsConfirmation && in.PaymentToken == "" {
		return nil, ErrPaymentTokenRequired
	}

	providerID, items, err := s.price(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	total := money.SumLineItems(items)
	if in.ClientTotal.Valid && !in.ClientTotal.Decimal.Equal(total) {
		s.logger.Warn("client total differs from catalog total",
			zap.String("owner_id", in.OwnerID),
			zap.Stringer("client_total", in.ClientTotal.Decimal),
			zap.Stringer("total", total))
	}

	orderID := s.newID()
	cartVersion, err := s.carts.CurrentVersion(ctx, in.OwnerID)
	if err != nil {
		s.logger.Warn("cart version unavailable, cart will not be cleared",
			zap.String("owner_id", in.OwnerID), zap.Error(err))
		cartVersion = -1
	}

	var reference string
	if needsConfirmation {
		amount, err := money.ToMinorUnits(total)
		if err != nil {
			return nil, fmt.Errorf("convert total: %w", err)
		}
		conf, err := s.payments.Confirm(ctx, payment.Charge{
			AmountMinor:    amount,
			Currency:       s.currency,
			Token:          in.PaymentToken,
			IdempotencyKey: orderID,
		})
		if err != nil {
			return nil, fmt.Errorf("confirm payment: %w", err)
		}
		reference = conf.Reference
	}

	platform, provider := money.Split(total, money.PlatformRate)
	now := s.now()
	o := &Order{
		ID:               orderID,
		OwnerID:          in.OwnerID,
		ProviderID:       providerID,
		Items:            items,
		Total:            total,
		PlatformProfit:   platform,
		ProviderProfit:   provider,
		Delivery:         in.Delivery,
		Contact:          in.Contact,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: reference,
		DriverStatus:     DriverPending,
		ProviderStatus:   ProviderPending,
		CartVersion:      cartVersion,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, o); err != nil {
		if reference != "" {
			s.logger.Error("payment captured but order not saved",
				zap.String("order_id", orderID), zap.String("payment_reference", reference), zap.Error(err))
		}
		return nil, fmt.Errorf("save order: %w", err)
	}

	_, err = s.journal.Append(ctx, o.ID, AggregateType, EventOrderPlaced, OrderPlaced{
		OrderID:       o.ID,
		OwnerID:       o.OwnerID,
		ProviderID:    o.ProviderID,
		Total:         o.Total.String(),
		PaymentMethod: string(o.PaymentMethod),
		CartVersion:   cartVersion,
		PlacedAt:      now,
	})
	if err != nil {
		s.logger.Warn("order placed event not recorded", zap.String("order_id", o.ID), zap.Error(err))
	}

	if cartVersion >= 0 {
		cleared, err := s.carts.ClearIfUnchanged(ctx, o.OwnerID, cartVersion)
		switch {
		case err != nil:
			s.logger.Warn("cart not cleared after checkout",
				zap.String("order_id", o.ID), zap.String("owner_id", o.OwnerID), zap.Error(err))
		case !cleared:
			s.logger.Info("cart changed during checkout, left as is",
				zap.String("order_id", o.ID), zap.String("owner_id", o.OwnerID))
		}
	}

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("provider_id", o.ProviderID),
		zap.Stringer("total", o.Total),
		zap.String("payment_method", string(o.PaymentMethod)))
	return o, nil
}

// price resolves the provider from the first item and reprices every item
// from the catalog.
func (s *Service) price(ctx context.Context, in []CheckoutItem) (string, []Item, error) {
	ids := make([]string, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return "", nil, fmt.Errorf("resolve products: %w", err)
	}

	first, ok := products[in[0].ProductID]
	if !ok || first.SellerID == "" {
		return "", nil, ErrProviderNotFound
	}
	providerID := first.SellerID

	items := make([]Item, 0, len(in))
	for _, it := range in {
		p, ok := products[it.ProductID]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrProviderNotFound, it.ProductID)
		}
		if p.SellerID != providerID {
			return "", nil, ErrMixedProviders
		}
		if !it.ClientPrice.IsZero() && !it.ClientPrice.Equal(p.Price) {
			s.logger.Warn("client price differs from catalog price",
				zap.String("product_id", p.ID),
				zap.Stringer("client_price", it.ClientPrice),
				zap.Stringer("price", p.Price))
		}
		items = append(items, Item{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		})
	}
	return providerID, items, nil
}

// UpdateStatus moves one status track a single step.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, actor Actor, upd StatusUpdate) (*Order, error) {
	if (upd.ProviderStatus == nil) == (upd.DriverStatus == nil) {
		return nil, ErrNoStatusUpdate
	}
	if upd.ProviderStatus != nil && !upd.ProviderStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, *upd.ProviderStatus)
	}
	if upd.DriverStatus != nil && !upd.DriverStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, *upd.DriverStatus)
	}

	for attempt := 1; ; attempt++ {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return nil, err
		}

		eventType, event, err := s.apply(o, actor, upd)
		if err != nil {
			return nil, err
		}
		o.UpdatedAt = s.now()

		err = s.repo.Update(ctx, o)
		if err == nil {
			if _, err := s.journal.Append(ctx, o.ID, AggregateType, eventType, event); err != nil {
				s.logger.Warn("status event not recorded", zap.String("order_id", o.ID), zap.Error(err))
			}
			return o, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("save order: %w", err)
		}
		if attempt >= maxWriteAttempts {
			return nil, ErrConcurrentModification
		}
	}
}

func (s *Service) apply(o *Order, actor Actor, upd StatusUpdate) (string, any, error) {
	now := s.now()

	if upd.ProviderStatus != nil {
		if actor.Role != user.RoleAdmin && !(actor.Role == user.RoleProvider && actor.ID == o.ProviderID) {
			return "", nil, ErrForbidden
		}
		from, to := o.ProviderStatus, *upd.ProviderStatus
		if !from.CanTransitionTo(to) {
			return "", nil, transitionError("provider", string(from), string(to))
		}
		o.ProviderStatus = to
		return EventProviderStatusChanged, ProviderStatusChanged{
			OrderID: o.ID, From: from, To: to, ActorID: actor.ID, ChangedAt: now,
		}, nil
	}

	from, to := o.DriverStatus, *upd.DriverStatus
	if err := authorizeDriverUpdate(o, actor, to); err != nil {
		return "", nil, err
	}
	if !from.CanTransitionTo(to) {
		return "", nil, transitionError("driver", string(from), string(to))
	}
	if to == DriverAccepted && actor.Role == user.RoleDriver {
		o.DriverID = actor.ID
	}
	o.DriverStatus = to
	return EventDriverStatusChanged, DriverStatusChanged{
		OrderID: o.ID, From: from, To: to, DriverID: o.DriverID, ActorID: actor.ID, ChangedAt: now,
	}, nil
}

func authorizeDriverUpdate(o *Order, actor Actor, to DriverStatus) error {
	// Any account that placed the order may cancel it before a driver takes it.
	if to == DriverCancelled && actor.ID == o.OwnerID && actor.Role != user.RoleAdmin && o.DriverID != actor.ID {
		if o.DriverStatus != DriverPending {
			return transitionError("driver", string(o.DriverStatus), string(to))
		}
		return nil
	}

	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleDriver:
		if o.DriverID == "" {
			if to != DriverAccepted {
				return ErrForbidden
			}
			return nil
		}
		if o.DriverID != actor.ID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// Get returns an order visible to actor: its owner, its provider, its
// driver (or any driver while unassigned), or an admin.
func (s *Service) Get(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(o, actor) {
		return nil, ErrForbidden
	}
	return o, nil
}

func canView(o *Order, actor Actor) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleProvider:
		return o.ProviderID == actor.ID || o.OwnerID == actor.ID
	case user.RoleDriver:
		return o.DriverID == "" || o.DriverID == actor.ID || o.OwnerID == actor.ID
	default:
		return o.OwnerID == actor.ID
	}
}

func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]*Order, error) {
	orders, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) ListForProvider(ctx context.Context, providerID string) ([]*Order, error) {
	orders, err := s.repo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list provider orders: %w", err)
	}
	return orders, nil
}

func (s *Service) load(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}
