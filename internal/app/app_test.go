package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/example/bazaar/internal/infrastructure/store/memstore"
	"github.com/example/bazaar/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeedProducts(t *testing.T) {
	products := memstore.NewProductStore()
	path := writeSeed(t, `[
		{"id":"prod-a","sellerId":"seller-1","title":"Tea","price":"10.50","active":true},
		{"id":"prod-b","sellerId":"seller-1","title":"Cake","price":5,"active":true}
	]`)

	n, err := SeedProducts(context.Background(), products, path)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	p, err := products.Get(context.Background(), "prod-a")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("10.5")))
}

func TestSeedProducts_BadFile(t *testing.T) {
	_, err := SeedProducts(context.Background(), memstore.NewProductStore(), writeSeed(t, `{"id":`))
	assert.Error(t, err)

	_, err = SeedProducts(context.Background(), memstore.NewProductStore(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := config.Config{StoreBackend: "memory", ProductSeedFile: writeSeed(t, `[{"id":"p1","sellerId":"s1","price":"1","active":true}]`)}

	s, err := OpenStores(context.Background(), cfg, zap.NewNop())

	require.NoError(t, err)
	_, err = s.Products.Get(context.Background(), "p1")
	assert.NoError(t, err)
	assert.NoError(t, s.Close(context.Background()))
}

func TestOpenJournal_Memory(t *testing.T) {
	journal, closeFn, err := OpenJournal(context.Background(), config.Config{JournalBackend: "memory"}, nil, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &store.MemoryJournal{}, journal)
	assert.NoError(t, closeFn())
}

func TestNewGateway_WithoutKey(t *testing.T) {
	gw, err := NewGateway(config.Payment{}, zap.NewNop())

	require.NoError(t, err)
	_, err = gw.Confirm(context.Background(), payment.Charge{AmountMinor: 100, Token: "pm"})
	assert.ErrorIs(t, err, payment.ErrGateway)
}
