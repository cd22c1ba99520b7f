package events

import (
	"context"
	"encoding/json"
	"fmt"

	"calibra/pkg/platform/outbox"
)

// OutboxSink serialises events into the transactional outbox; the outbox
// worker ships them to Kafka.
type OutboxSink struct {
	store outbox.Store
}

func NewOutboxSink(store outbox.Store) *OutboxSink {
	return &OutboxSink{store: store}
}

func (s *OutboxSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	entry := outbox.NewEntry(string(event.Handle), string(event.Type), payload, event.Timestamp)
	entry.ID = event.ID
	if err := s.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append event to outbox: %w", err)
	}
	return nil
}

// FanOut appends to every sink and returns the first error.
type FanOut []Sink

func (f FanOut) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range f {
		if err := sink.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
