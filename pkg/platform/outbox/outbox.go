// Package outbox implements the transactional outbox used to ship
// certification lifecycle events to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending event.
type Entry struct {
	ID          uuid.UUID
	AggregateID string // verification handle
	EventType   string
	Payload     []byte // JSON-encoded event
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates an entry with a generated ID.
func NewEntry(aggregateID, eventType string, payload []byte, now time.Time) *Entry {
	return &Entry{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   now,
	}
}

// Store persists outbox entries. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	// FetchUnprocessed returns up to limit pending entries, oldest first.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	CountPending(ctx context.Context) (int64, error)
	// DeleteProcessedBefore removes processed entries older than before.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
