// Package store holds the persistence sentinels shared by every backend and
// the order event journal.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrDuplicate       = errors.New("record already exists")
)

// Event is one journal entry. Version is the per-aggregate sequence number.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// Journal is an append-only log of order lifecycle events.
type Journal interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	Events(ctx context.Context, aggregateID string) ([]Event, error)
}

// Publisher forwards appended events to a broker. The Kafka producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

func newEvent(id, aggregateID, aggregateType, eventType string, data any, version int, now time.Time) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     now,
		Version:       version,
	}, nil
}
