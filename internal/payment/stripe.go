package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Config is injected at construction; the adapter never reads the
// environment itself.
type Config struct {
	SecretKey string
	ReturnURL string
	Timeout   time.Duration
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway confirms charges as Stripe PaymentIntents.
type StripeGateway struct {
	intents intentCreator
	breaker *gobreaker.CircuitBreaker[*stripe.PaymentIntent]
	cfg     Config
	logger  *zap.Logger
}

func NewStripeGateway(cfg Config, logger *zap.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	sc := client.New(cfg.SecretKey, nil)
	return newStripeGateway(sc.PaymentIntents, cfg, logger), nil
}

func newStripeGateway(intents intentCreator, cfg Config, logger *zap.Logger) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger = logger.Named("payment")
	breaker := gobreaker.NewCircuitBreaker[*stripe.PaymentIntent](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A declined card is a healthy gateway answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	return &StripeGateway{intents: intents, breaker: breaker, cfg: cfg, logger: logger}
}

func (g *StripeGateway) Confirm(ctx context.Context, charge Charge) (*Confirmation, error) {
	if charge.Token == "" {
		return nil, fmt.Errorf("%w: missing payment method", ErrDeclined)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	pi, err := g.breaker.Execute(func() (*stripe.PaymentIntent, error) {
		params := &stripe.PaymentIntentParams{
			Amount:        stripe.Int64(charge.AmountMinor),
			Currency:      stripe.String(charge.Currency),
			PaymentMethod: stripe.String(charge.Token),
			Confirm:       stripe.Bool(true),
		}
		if g.cfg.ReturnURL != "" {
			params.ReturnURL = stripe.String(g.cfg.ReturnURL)
		}
		params.Context = ctx
		if charge.IdempotencyKey != "" {
			params.SetIdempotencyKey(charge.IdempotencyKey)
		}

		pi, err := g.intents.New(params)
		if err != nil {
			return nil, classify(err)
		}
		if pi.Status != stripe.PaymentIntentStatusSucceeded {
			return pi, fmt.Errorf("%w: intent %s is %s", ErrDeclined, pi.ID, pi.Status)
		}
		return pi, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if err != nil {
		g.logger.Info("payment not confirmed",
			zap.String("idempotency_key", charge.IdempotencyKey), zap.Error(err))
		return nil, err
	}

	return &Confirmation{Reference: pi.ID, Status: string(pi.Status)}, nil
}

func classify(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.Type == stripe.ErrorTypeCard {
			return fmt.Errorf("%w: %s", ErrDeclined, se.Msg)
		}
		return fmt.Errorf("%w: %s", ErrGateway, se.Msg)
	}
	return fmt.Errorf("%w: %v", ErrGateway, err)
}
