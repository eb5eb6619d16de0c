// Package memstore keeps carts, orders, products and users in process
// memory. It backs STORE_BACKEND=memory and the HTTP tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/bazaar/internal/catalog"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/example/bazaar/internal/infrastructure/store"
)

type CartStore struct {
	mu    sync.RWMutex
	carts map[string]cart.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]cart.Cart)}
}

func (s *CartStore) Get(_ context.Context, ownerID string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyCart(c), nil
}

func (s *CartStore) Save(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.carts[c.OwnerID]
	switch {
	case !ok && c.Version != 0:
		return store.ErrVersionConflict
	case ok && stored.Version != c.Version:
		return store.ErrVersionConflict
	}
	c.Version++
	s.carts[c.OwnerID] = *copyCart(*c)
	return nil
}

func copyCart(c cart.Cart) *cart.Cart {
	c.Items = append([]cart.Item(nil), c.Items...)
	return &c
}

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]order.Order)}
}

func (s *OrderStore) Insert(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	s.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (s *OrderStore) Get(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *OrderStore) Update(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != o.Version {
		return store.ErrVersionConflict
	}
	o.Version++
	s.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (s *OrderStore) ListByOwner(_ context.Context, ownerID string) ([]*order.Order, error) {
	return s.list(func(o *order.Order) bool { return o.OwnerID == ownerID }), nil
}

func (s *OrderStore) ListByProvider(_ context.Context, providerID string) ([]*order.Order, error) {
	return s.list(func(o *order.Order) bool { return o.ProviderID == providerID }), nil
}

func (s *OrderStore) list(match func(*order.Order) bool) []*order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*order.Order, 0)
	for _, o := range s.orders {
		if match(&o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func copyOrder(o order.Order) *order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	return &o
}

// ProductStore is a catalog.Reader over an in-memory product table.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]catalog.Product)}
}

func (s *ProductStore) Upsert(_ context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s *ProductStore) Get(_ context.Context, id string) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || !p.Active {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (s *ProductStore) GetMany(_ context.Context, ids []string) (map[string]*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			out[id] = &p
		}
	}
	return out, nil
}

type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return store.ErrDuplicate
	}
	s.byID[u.ID] = *u
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}
