package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryJournal keeps events in process. Used by tests and single-node dev runs.
type MemoryJournal struct {
	mu        sync.RWMutex
	events    map[string][]Event
	publisher Publisher
}

func NewMemoryJournal(publisher Publisher) *MemoryJournal {
	return &MemoryJournal{
		events:    make(map[string][]Event),
		publisher: publisher,
	}
}

// Append stores an event and publishes it when a publisher is configured.
func (j *MemoryJournal) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	j.mu.Lock()
	event, err := newEvent(uuid.NewString(), aggregateID, aggregateType, eventType, data,
		len(j.events[aggregateID])+1, time.Now().UTC())
	if err != nil {
		j.mu.Unlock()
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	j.events[aggregateID] = append(j.events[aggregateID], event)
	j.mu.Unlock()

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, aggregateID, event); err != nil {
			return &event, fmt.Errorf("publish %s: %w", eventType, err)
		}
	}
	return &event, nil
}

func (j *MemoryJournal) Events(_ context.Context, aggregateID string) ([]Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Event, len(j.events[aggregateID]))
	copy(out, j.events[aggregateID])
	return out, nil
}
