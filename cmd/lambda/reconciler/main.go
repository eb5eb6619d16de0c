// Command reconciler is the Lambda variant of the cart reconciler. It reads
// journal inserts from the DynamoDB table's Kinesis stream.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/bazaar/internal/app"
	"github.com/example/bazaar/internal/config"
	"github.com/example/bazaar/internal/domain/cart"
	"github.com/example/bazaar/internal/infrastructure/kinesis"
	"github.com/example/bazaar/internal/logging"
	"github.com/example/bazaar/internal/reconcile"
	"go.uber.org/zap"
)

var (
	reconciler *reconcile.Reconciler
	logger     *zap.Logger
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err = logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	stores, err := app.OpenStores(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	reconciler = reconcile.New(cart.NewService(stores.Carts, stores.Products, logger), logger)
	logger.Info("lambda reconciler initialized")
}

func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	var failures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: record.Kinesis.SequenceNumber})
	}

	for _, record := range kinesisEvent.Records {
		event, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			logger.Error("convert record", zap.String("record_id", record.EventID), zap.Error(err))
			fail(record)
			continue
		}
		// MODIFY and REMOVE records carry nothing to reconcile.
		if event == nil {
			continue
		}
		if err := reconciler.HandleEvent(ctx, *event); err != nil {
			logger.Error("reconcile event",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			fail(record)
		}
	}

	logger.Info("batch processed",
		zap.Int("records", len(kinesisEvent.Records)),
		zap.Int("failed", len(failures)))
	return events.KinesisEventResponse{BatchItemFailures: failures}, nil
}

func main() {
	lambda.Start(handler)
}
