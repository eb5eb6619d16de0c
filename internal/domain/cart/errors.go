package cart

import "github.com/example/bazaar/internal/apperr"

var (
	ErrNoItems                = apperr.New(apperr.KindValidation, "no items provided")
	ErrInvalidProduct         = apperr.New(apperr.KindValidation, "product id is required")
	ErrInvalidQuantity        = apperr.New(apperr.KindValidation, "quantity must be at least 1")
	ErrInvalidPrice           = apperr.New(apperr.KindValidation, "price must not be negative")
	ErrItemNotFound           = apperr.New(apperr.KindNotFound, "item not found in cart")
	ErrMultiProviderConflict  = apperr.New(apperr.KindConflict, "you can only add items from one provider, clear your cart first")
	ErrConcurrentModification = apperr.New(apperr.KindConflict, "cart was modified concurrently, try again")
)
