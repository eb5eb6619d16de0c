// Package kinesis decodes journal events delivered by DynamoDB's Kinesis
// stream integration.
package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/bazaar/internal/infrastructure/store"
)

// ConvertFromKinesisRecord decodes one record. Records other than INSERT
// carry no new journal entry and yield a nil event.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(change)
}

// ConvertFromDynamoDBStreamRecord handles records read straight from a
// DynamoDB stream.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*store.Event, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}
	item, err := itemFromImage(record.Change.NewImage)
	if err != nil {
		return nil, err
	}
	event, err := item.Event()
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// itemFromImage reads the attributes DynamoJournal writes.
func itemFromImage(image map[string]events.DynamoDBAttributeValue) (store.DynamoItem, error) {
	if image == nil {
		return store.DynamoItem{}, fmt.Errorf("DynamoDB image is nil")
	}

	str := func(name string) string {
		if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	item := store.DynamoItem{
		AggregateID:   str("aggregate_id"),
		ID:            str("id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          str("data"),
		CreatedAt:     str("created_at"),
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return store.DynamoItem{}, fmt.Errorf("failed to parse version: %w", err)
		}
		item.Version = int(version)
	}
	return item, nil
}

// BatchConvertFromKinesisEvent converts every record, collecting per-record
// errors instead of stopping at the first.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*store.Event, []error) {
	var converted []*store.Event
	var errs []error

	for _, record := range kinesisEvent.Records {
		event, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if event != nil {
			converted = append(converted, event)
		}
	}

	return converted, errs
}
