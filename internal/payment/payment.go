// Package payment confirms upfront payments for orders that need them.
package payment

import (
	"context"
	"fmt"

	"github.com/example/bazaar/internal/apperr"
)

var (
	ErrDeclined = apperr.New(apperr.KindPaymentDeclined, "payment declined")
	ErrGateway  = apperr.New(apperr.KindPaymentGateway, "payment gateway error")
)

// Charge is one confirmation request. AmountMinor is in the currency's
// smallest unit.
type Charge struct {
	AmountMinor    int64
	Currency       string
	Token          string
	IdempotencyKey string
}

type Confirmation struct {
	Reference string
	Status    string
}

// Gateway confirms a charge. Failures wrap ErrDeclined or ErrGateway.
type Gateway interface {
	Confirm(ctx context.Context, charge Charge) (*Confirmation, error)
}

// RequiresConfirmation reports whether orders paid with method must be
// confirmed before they are persisted.
func RequiresConfirmation(method string) bool {
	return method == "stripe"
}

// Disabled stands in when no gateway key is configured. Every confirmation
// fails as a gateway error.
type Disabled struct{}

func (Disabled) Confirm(context.Context, Charge) (*Confirmation, error) {
	return nil, fmt.Errorf("%w: payments are not configured", ErrGateway)
}
