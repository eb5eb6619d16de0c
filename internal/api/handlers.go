package api

import (
	"net/http"

	"github.com/example/bazaar/internal/api/middleware"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handlers struct {
	carts  *cart.Service
	orders *order.Service
	logger *zap.Logger
}

func NewHandlers(carts *cart.Service, orders *order.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		carts:  carts,
		orders: orders,
		logger: logger,
	}
}

// ItemRequest is one line as sent by the storefront. Price is the line
// price, not the unit price.
type ItemRequest struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type AddItemsRequest struct {
	Items []ItemRequest `json:"items"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items         []ItemRequest       `json:"items"`
	Total         decimal.NullDecimal `json:"total"`
	PaymentMethod string              `json:"paymentMethod"`
	PaymentToken  string              `json:"paymentToken,omitempty"`
	FirstName     string              `json:"firstName"`
	LastName      string              `json:"lastName"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
	Info          string              `json:"info"`
	Street        string              `json:"street"`
	City          string              `json:"city"`
	State         string              `json:"state"`
	ZipCode       string              `json:"zipCode"`
}

type UpdateStatusRequest struct {
	ProviderStatus *order.ProviderStatus `json:"providerStatus,omitempty"`
	DriverStatus   *order.DriverStatus   `json:"driverStatus,omitempty"`
}

func actorFrom(r *http.Request) order.Actor {
	claims, _ := middleware.GetUserFromContext(r.Context())
	return order.Actor{ID: claims.UserID, Role: user.Role(claims.Role)}
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.GetCart(r.Context(), actorFrom(r).ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddItemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reqs := make([]cart.Request, 0, len(req.Items))
	for _, it := range req.Items {
		reqs = append(reqs, cart.Request{ProductID: it.Product, Quantity: it.Quantity, LinePrice: it.Price})
	}

	c, err := h.carts.AddItems(r.Context(), actorFrom(r).ID, reqs)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ViewOf(c))
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), actorFrom(r).ID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ViewOf(c))
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), actorFrom(r).ID, chi.URLParam(r, "productId"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ViewOf(c))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), actorFrom(r).ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cart.ViewOf(c))
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.CheckoutItem{ProductID: it.Product, Quantity: it.Quantity, ClientPrice: it.Price})
	}

	o, err := h.orders.Create(r.Context(), order.Checkout{
		OwnerID:     actorFrom(r).ID,
		Items:       items,
		ClientTotal: req.Total,
		Delivery: order.Address{
			Street:  req.Street,
			City:    req.City,
			State:   req.State,
			ZipCode: req.ZipCode,
		},
		Contact: order.Contact{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Info:      req.Info,
		},
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		PaymentToken:  req.PaymentToken,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForOwner(r.Context(), actorFrom(r).ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetProviderOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForProvider(r.Context(), actorFrom(r).ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"), actorFrom(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), actorFrom(r), order.StatusUpdate{
		ProviderStatus: req.ProviderStatus,
		DriverStatus:   req.DriverStatus,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
