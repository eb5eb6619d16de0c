package api

import (
	"net/http"
	"time"

	"github.com/example/bazaar/internal/api/middleware"
	"github.com/example/bazaar/internal/auth"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	r.Post("/auth/register", authHandlers.Register)
	r.Post("/auth/login", authHandlers.Login)
	r.Post("/auth/refresh", authHandlers.Refresh)
	r.Post("/auth/logout", authHandlers.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))

		r.Get("/auth/me", authHandlers.Me)

		// Cart
		r.Get("/cart", handlers.GetCart)
		r.Delete("/cart", handlers.ClearCart)
		r.Post("/cart/items", handlers.AddToCart)
		r.Put("/cart/items/{productId}", handlers.UpdateCartItem)
		r.Delete("/cart/items/{productId}", handlers.RemoveFromCart)

		// Orders
		r.Get("/orders", handlers.GetOrders)
		r.Post("/orders", handlers.PlaceOrder)
		r.Get("/orders/{orderId}", handlers.GetOrder)
		r.Patch("/orders/{orderId}/status", handlers.UpdateOrderStatus)

		r.With(middleware.RequireRole(string(user.RoleProvider), string(user.RoleAdmin))).
			Get("/provider/orders", handlers.GetProviderOrders)
	})

	return r
}
