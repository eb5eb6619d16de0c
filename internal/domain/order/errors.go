package order

import "github.com/example/bazaar/internal/apperr"

var (
	ErrEmptyCart               = apperr.New(apperr.KindValidation, "no items to order")
	ErrInvalidQuantity         = apperr.New(apperr.KindValidation, "quantity must be at least 1")
	ErrInvalidPaymentMethod    = apperr.New(apperr.KindValidation, "payment method must be cash, paypal or stripe")
	ErrPaymentTokenRequired    = apperr.New(apperr.KindValidation, "payment token is required for this payment method")
	ErrProviderNotFound        = apperr.New(apperr.KindValidation, "product or provider not found")
	ErrMixedProviders          = apperr.New(apperr.KindValidation, "all items must come from the same provider")
	ErrNoStatusUpdate          = apperr.New(apperr.KindValidation, "exactly one of providerStatus or driverStatus is required")
	ErrUnknownStatus           = apperr.New(apperr.KindValidation, "unknown status")
	ErrInvalidStatusTransition = apperr.New(apperr.KindConflict, "invalid status transition")
	ErrConcurrentModification  = apperr.New(apperr.KindConflict, "order was modified concurrently, try again")
	ErrOrderNotFound           = apperr.New(apperr.KindNotFound, "order not found")
	ErrForbidden               = apperr.New(apperr.KindForbidden, "not allowed to access this order")
)
