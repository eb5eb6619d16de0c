// Package apperr classifies domain errors so transports can map them to
// stable status codes without knowing every sentinel.
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindPaymentDeclined
	KindPaymentGateway
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindPaymentDeclined:
		return "payment_declined"
	case KindPaymentGateway:
		return "payment_gateway_error"
	default:
		return "internal_error"
	}
}

// Error is a classified sentinel. Compare with errors.Is against the
// package-level values that domain packages declare.
type Error struct {
	Kind    Kind
	Message string
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

// KindOf walks the wrap chain and returns the first classification found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
