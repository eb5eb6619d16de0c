// Package money holds the pricing arithmetic shared by carts and orders.
// All amounts are decimal values; binary floats never touch a price.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// RoundingPlaces is the number of fractional digits kept for currency amounts.
const RoundingPlaces = 2

// PlatformRate is the marketplace's share of every order total.
var PlatformRate = decimal.RequireFromString("0.10")

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)

// Line is anything that contributes a subtotal to a cart or order total.
type Line interface {
	Subtotal() decimal.Decimal
}

// ComputeUnitPrice divides an aggregate line price by its quantity.
func ComputeUnitPrice(linePrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	return linePrice.Div(decimal.NewFromInt(int64(quantity))), nil
}

// RescaleLine returns the line price for toQty items at the unit price of a
// line that cost linePrice for fromQty items. Multiplying before dividing
// keeps evenly divisible results exact; the rest round to RoundingPlaces.
func RescaleLine(linePrice decimal.Decimal, fromQty, toQty int) (decimal.Decimal, error) {
	if fromQty <= 0 || toQty <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if fromQty == toQty {
		return linePrice, nil
	}
	scaled := linePrice.Mul(decimal.NewFromInt(int64(toQty))).Div(decimal.NewFromInt(int64(fromQty)))
	return scaled.Round(RoundingPlaces), nil
}

// SumLineItems recomputes a total from scratch. Callers must never keep a
// running total across mutations.
func SumLineItems[L Line](items []L) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Split divides total into the platform and provider shares. The platform
// share is rounded to RoundingPlaces and the provider share is derived by
// subtraction, so platform+provider == total holds exactly.
func Split(total, rate decimal.Decimal) (platform, provider decimal.Decimal) {
	platform = total.Mul(rate).Round(RoundingPlaces)
	provider = total.Sub(platform)
	return platform, provider
}

// ToMinorUnits converts an amount to integer cents for payment gateways.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	return amount.Shift(RoundingPlaces).Round(0).IntPart(), nil
}

// Parse reads a decimal amount stored as text. The empty string is zero.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
