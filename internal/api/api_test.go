package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/bazaar/internal/api/middleware"
	"github.com/example/bazaar/internal/auth"
	"github.com/example/bazaar/internal/catalog"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/example/bazaar/internal/infrastructure/store/memstore"
	"github.com/example/bazaar/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-0123456789abcdef"

type stubGateway struct {
	err error
}

func (g *stubGateway) Confirm(_ context.Context, c payment.Charge) (*payment.Confirmation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Confirmation{Reference: "pi_" + c.IdempotencyKey, Status: "succeeded"}, nil
}

type testServer struct {
	handler  http.Handler
	jwt      *auth.JWTService
	products *memstore.ProductStore
	gateway  *stubGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	products := memstore.NewProductStore()
	ctx := context.Background()
	for _, p := range []*catalog.Product{
		{ID: "prod-a", SellerID: "seller-1", Title: "Tea", Price: decimal.NewFromInt(10), Active: true},
		{ID: "prod-b", SellerID: "seller-1", Title: "Cake", Price: decimal.NewFromInt(5), Active: true},
		{ID: "prod-x", SellerID: "seller-2", Title: "Soup", Price: decimal.NewFromInt(3), Active: true},
		{ID: "prod-off", SellerID: "seller-1", Title: "Retired", Price: decimal.NewFromInt(7)},
	} {
		require.NoError(t, products.Upsert(ctx, p))
	}

	gateway := &stubGateway{}
	jwtService := auth.NewJWTService(testSecret, 15*time.Minute, time.Hour)
	carts := cart.NewService(memstore.NewCartStore(), products, logger)
	orders := order.NewService(memstore.NewOrderStore(), products, gateway, carts,
		store.NewMemoryJournal(nil), "usd", logger)
	users := user.NewService(memstore.NewUserStore())

	handler := NewRouter(
		NewHandlers(carts, orders, logger),
		NewAuthHandlers(users, jwtService, false, logger),
		jwtService,
		logger,
	)
	return &testServer{handler: handler, jwt: jwtService, products: products, gateway: gateway}
}

func (s *testServer) token(t *testing.T, userID string, role user.Role) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(userID, userID+"@example.com", string(role))
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func addItems(items ...map[string]any) map[string]any {
	return map[string]any{"items": items}
}

func item(product string, quantity int, price string) map[string]any {
	return map[string]any{"product": product, "quantity": quantity, "price": price}
}

func orderBody(method string, items ...map[string]any) map[string]any {
	return map[string]any{
		"items":         items,
		"paymentMethod": method,
		"firstName":     "Ada",
		"lastName":      "Lovelace",
		"email":         "ada@example.com",
		"phone":         "555-0100",
		"street":        "1 Main St",
		"city":          "Springfield",
		"state":         "IL",
		"zipCode":       "62701",
	}
}

// ============================================
// Health & Auth
// ============================================

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/cart", "/orders", "/provider/orders", "/auth/me"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "Ada@Example.com", "password": "correct-horse", "name": "Ada", "role": "provider",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[AuthResponse](t, rec)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.Equal(t, user.RoleProvider, registered.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse", "name": "Ada",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[AuthResponse](t, rec)
	require.NotEmpty(t, login.AccessToken)

	var refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.RefreshTokenCookie {
			refresh = c
		}
	}
	require.NotNil(t, refresh)

	rec = s.do(t, http.MethodGet, "/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, registered.User.ID, decode[user.User](t, rec).ID)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(refresh)
	refreshed := httptest.NewRecorder()
	s.handler.ServeHTTP(refreshed, req)
	require.Equal(t, http.StatusOK, refreshed.Code)
	assert.NotEmpty(t, decode[AuthResponse](t, refreshed).AccessToken)

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: login.AccessToken})
	rejected := httptest.NewRecorder()
	s.handler.ServeHTTP(rejected, req)
	assert.Equal(t, http.StatusUnauthorized, rejected.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []map[string]string{
		{"email": "not-an-email", "password": "correct-horse", "name": "Ada"},
		{"email": "ada@example.com", "password": "short", "name": "Ada"},
		{"email": "ada@example.com", "password": "correct-horse", "name": ""},
		{"email": "ada@example.com", "password": "correct-horse", "name": "Ada", "role": "admin"},
	}
	for _, body := range tests {
		rec := s.do(t, http.MethodPost, "/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

// ============================================
// Cart
// ============================================

func TestCart_AddAndView(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", user.RoleCustomer)

	rec := s.do(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, mustField(t, rec, "items"))

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-a", 2, "20"), item("prod-b", 1, "5")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[cart.View](t, rec)
	assert.Equal(t, "seller-1", view.ProviderID)
	assert.True(t, view.Total.Equal(dec("25")))
	require.Len(t, view.Items, 2)

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-a", 1, "10")))
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[cart.View](t, rec)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(dec("35")))

	rec = s.do(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[cart.View](t, rec)
	assert.Equal(t, "Tea", view.Items[0].Title)
}

func TestCart_Errors(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", user.RoleCustomer)
	rec := s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-a", 1, "10")))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-x", 1, "3")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "provider_conflict", decode[ErrorResponse](t, rec).Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "clear your cart first")

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems(item("ghost", 1, "1")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-off", 1, "7")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/cart/items/prod-a", token, map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/cart/items/prod-b", token, map[string]int{"quantity": 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	bad := httptest.NewRecorder()
	s.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", user.RoleCustomer)
	s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-a", 2, "20"), item("prod-b", 1, "5")))

	rec := s.do(t, http.MethodPut, "/cart/items/prod-a", token, map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[cart.View](t, rec).Total.Equal(dec("55")))

	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodDelete, "/cart/items/prod-b", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[cart.View](t, rec).Total.Equal(dec("50")))
	}

	rec = s.do(t, http.MethodDelete, "/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[cart.View](t, rec)
	assert.Empty(t, view.Items)
	assert.Empty(t, view.ProviderID)

	rec = s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-x", 1, "3")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================
// Orders
// ============================================

func placeOrder(t *testing.T, s *testServer, token string) order.Order {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/orders", token, orderBody("cash", item("prod-a", 2, "20"), item("prod-b", 1, "5")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[order.Order](t, rec)
}

func TestOrders_CheckoutClearsCart(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", user.RoleCustomer)
	s.do(t, http.MethodPost, "/cart/items", token, addItems(item("prod-a", 2, "20"), item("prod-b", 1, "5")))

	o := placeOrder(t, s, token)

	assert.Equal(t, "seller-1", o.ProviderID)
	assert.True(t, o.Total.Equal(dec("25")))
	assert.True(t, o.PlatformProfit.Equal(dec("2.5")))
	assert.True(t, o.ProviderProfit.Equal(dec("22.5")))
	assert.Equal(t, order.DriverPending, o.DriverStatus)
	assert.Equal(t, order.ProviderPending, o.ProviderStatus)
	assert.Equal(t, "Springfield", o.Delivery.City)

	rec := s.do(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cart.View](t, rec).Items)

	rec = s.do(t, http.MethodGet, "/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]order.Order](t, rec), 1)
}

func TestOrders_CreateErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", user.RoleCustomer)

	tests := []struct {
		name       string
		body       map[string]any
		gatewayErr error
		wantStatus int
	}{
		{"empty items", orderBody("cash"), nil, http.StatusBadRequest},
		{"unknown method", orderBody("barter", item("prod-a", 1, "10")), nil, http.StatusBadRequest},
		{"missing provider", orderBody("cash", item("ghost", 1, "10")), nil, http.StatusBadRequest},
		{"inactive product", orderBody("cash", item("prod-off", 1, "7")), nil, http.StatusBadRequest},
		{"mixed providers", orderBody("cash", item("prod-a", 1, "10"), item("prod-x", 1, "3")), nil, http.StatusBadRequest},
		{"stripe without token", orderBody("stripe", item("prod-a", 1, "10")), nil, http.StatusBadRequest},
		{"declined", withToken(orderBody("stripe", item("prod-a", 1, "10"))), payment.ErrDeclined, http.StatusPaymentRequired},
		{"gateway down", withToken(orderBody("stripe", item("prod-a", 1, "10"))), payment.ErrGateway, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.gateway.err = tt.gatewayErr

			rec := s.do(t, http.MethodPost, "/orders", token, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	s.gateway.err = nil
	rec := s.do(t, http.MethodGet, "/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]order.Order](t, rec))
}

func withToken(body map[string]any) map[string]any {
	body["paymentToken"] = "pm_card_visa"
	return body
}

func TestOrders_StripeReference(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", user.RoleCustomer)

	rec := s.do(t, http.MethodPost, "/orders", token, withToken(orderBody("stripe", item("prod-a", 1, "10"))))

	require.Equal(t, http.StatusCreated, rec.Code)
	o := decode[order.Order](t, rec)
	assert.Equal(t, "pi_"+o.ID, o.PaymentReference)
}

func TestOrders_StatusAndVisibility(t *testing.T) {
	s := newTestServer(t)
	customer := s.token(t, "user-1", user.RoleCustomer)
	stranger := s.token(t, "user-2", user.RoleCustomer)
	provider := s.token(t, "seller-1", user.RoleProvider)
	admin := s.token(t, "admin-1", user.RoleAdmin)
	o := placeOrder(t, s, customer)
	statusPath := "/orders/" + o.ID + "/status"

	rec := s.do(t, http.MethodGet, "/orders/"+o.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/orders/missing", customer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPatch, statusPath, admin, map[string]string{"driverStatus": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, statusPath, customer, map[string]string{"providerStatus": "received"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, statusPath, provider, map[string]string{"providerStatus": "cooking"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, statusPath, provider, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, statusPath, provider, map[string]string{"providerStatus": "received"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.ProviderReceived, decode[order.Order](t, rec).ProviderStatus)

	rec = s.do(t, http.MethodGet, "/orders/"+o.ID, provider, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProviderOrders(t *testing.T) {
	s := newTestServer(t)
	customer := s.token(t, "user-1", user.RoleCustomer)
	placeOrder(t, s, customer)

	rec := s.do(t, http.MethodGet, "/provider/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/provider/orders", s.token(t, "seller-1", user.RoleProvider), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]order.Order](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/provider/orders", s.token(t, "seller-2", user.RoleProvider), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]order.Order](t, rec))
}

func mustField(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	return string(fields[name])
}
