package events

import (
	"context"
	"log/slog"
	"sync"

	dErrors "calibra/pkg/domain-errors"
	"calibra/pkg/requestcontext"
)

// Publisher stamps events and appends them to a sink, synchronously or
// through a bounded buffer drained by one goroutine.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool

	mu     sync.RWMutex
	closed bool
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues events in a buffer of size and persists them in
// the background. A full buffer drops the event and returns an error.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Go(p.drain)
	}
	return p
}

func (p *Publisher) drain() {
	for event := range p.events {
		if err := p.sink.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist certification event",
				"error", err,
				"type", event.Type,
				"handle", event.Handle,
			)
		}
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (p *Publisher) Close() {
	if !p.async {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	p.wg.Wait()
}

// Emit fills in the timestamp and request id from ctx when absent. An async
// publisher returns an error once closed.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if !p.async {
		return p.sink.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WarnContext(ctx, "event publisher closed, event dropped",
			"type", event.Type,
			"handle", event.Handle,
		)
		return dErrors.New(dErrors.CodeInternal, "event publisher closed")
	}

	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "event buffer full, event dropped",
			"type", event.Type,
			"handle", event.Handle,
		)
		return dErrors.New(dErrors.CodeInternal, "event buffer full")
	}
}
