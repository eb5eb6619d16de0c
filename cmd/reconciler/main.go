// Command reconciler consumes journaled events from Kafka and clears carts
// whose checkout did not finish clearing them inline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/bazaar/internal/app"
	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/infrastructure/kafka"
	"github.com/example/bazaar/internal/logging"
	"github.com/example/bazaar/internal/reconcile"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reconciler: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
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
	defer func() { _ = stores.Close(context.Background()) }()

	reconciler := reconcile.New(cart.NewService(stores.Carts, stores.Products, logger), logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	defer consumer.Close()

	logger.Info("reconciler started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID))

	if err := consumer.Consume(ctx, reconciler.HandleMessage); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("reconciler stopped")
	return nil
}
