package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoAPI is the subset of the DynamoDB client the journal calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoJournal stores events in DynamoDB. Delivery to consumers happens
// through the table's Kinesis stream, so it has no publisher.
type DynamoJournal struct {
	client    DynamoAPI
	tableName string
}

// DynamoItem is the table layout. The Kinesis record adapter decodes the
// same attribute names from stream images.
type DynamoItem struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int    `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
}

func NewDynamoJournal(client DynamoAPI, tableName string) *DynamoJournal {
	return &DynamoJournal{client: client, tableName: tableName}
}

// Append writes the next version with a conditional put so two writers can
// never claim the same version.
func (j *DynamoJournal) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	version, err := j.nextVersion(ctx, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("read journal version: %w", err)
	}

	event, err := newEvent(uuid.NewString(), aggregateID, aggregateType, eventType, data, version, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}

	av, err := attributevalue.MarshalMap(DynamoItem{
		AggregateID:   event.AggregateID,
		Version:       event.Version,
		ID:            event.ID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Data:          string(event.Data),
		CreatedAt:     event.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	_, err = j.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(j.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) AND attribute_not_exists(version)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("put event: %w", err)
	}
	return &event, nil
}

func (j *DynamoJournal) nextVersion(ctx context.Context, aggregateID string) (int, error) {
	result, err := j.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(j.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward:     aws.Bool(false),
		Limit:                aws.Int32(1),
		ProjectionExpression: aws.String("version"),
	})
	if err != nil {
		return 0, err
	}
	if len(result.Items) == 0 {
		return 1, nil
	}

	var item struct {
		Version int `dynamodbav:"version"`
	}
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return 0, err
	}
	return item.Version + 1, nil
}

func (j *DynamoJournal) Events(ctx context.Context, aggregateID string) ([]Event, error) {
	result, err := j.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(j.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(result.Items))
	for _, raw := range result.Items {
		var item DynamoItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		event, err := item.Event()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Event converts a stored item back to a journal event.
func (i DynamoItem) Event() (Event, error) {
	if i.ID == "" || i.AggregateID == "" || i.EventType == "" {
		return Event{}, fmt.Errorf("missing required fields: id=%q, aggregate_id=%q, event_type=%q",
			i.ID, i.AggregateID, i.EventType)
	}
	ts, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("event %s created_at %q: %w", i.ID, i.CreatedAt, err)
	}
	return Event{
		ID:            i.ID,
		AggregateID:   i.AggregateID,
		AggregateType: i.AggregateType,
		EventType:     i.EventType,
		Data:          json.RawMessage(i.Data),
		Timestamp:     ts,
		Version:       i.Version,
	}, nil
}
