package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/bazaar/internal/api"
	"github.com/example/bazaar/internal/app"
	"github.com/example/bazaar/internal/auth"
	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/domain/order"
	"github.com/example/bazaar/internal/domain/user"
	"github.com/example/bazaar/internal/infrastructure/kafka"
	"github.com/example/bazaar/internal/infrastructure/store"
	"github.com/example/bazaar/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			logger.Warn("closing stores", zap.Error(err))
		}
	}()

	var publisher store.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		logger.Info("publishing events to Kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	journal, closeJournal, err := app.OpenJournal(ctx, cfg, publisher, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	gateway, err := app.NewGateway(cfg.Payment, logger)
	if err != nil {
		return err
	}

	cartSvc := cart.NewService(stores.Carts, stores.Products, logger)
	orderSvc := order.NewService(stores.Orders, stores.Products, gateway, cartSvc, journal, cfg.Payment.Currency, logger)
	userSvc := user.NewService(stores.Users)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	router := api.NewRouter(
		api.NewHandlers(cartSvc, orderSvc, logger),
		api.NewAuthHandlers(userSvc, jwtService, cfg.SecureCookies, logger),
		jwtService,
		logger,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "bazaar-api"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
