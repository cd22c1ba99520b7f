package events

import (
	"context"
	"slices"
	"sync"

	"calibra/internal/certification/models"
)

// InMemoryStore is a Sink that keeps events in order. The service tests
// and the development profile read from it.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// All returns a copy of every event in append order.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// ListByHandle returns the events for one handle in append order.
func (s *InMemoryStore) ListByHandle(handle models.Handle) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.Handle == handle {
			out = append(out, e)
		}
	}
	return out
}

// Types returns the event types for one handle, for terse assertions.
func (s *InMemoryStore) Types(handle models.Handle) []Type {
	events := s.ListByHandle(handle)
	out := make([]Type, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}
