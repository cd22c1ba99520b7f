package worker

import (
	"context"
	"log/slog"
	"time"

	"calibra/internal/platform/kafka/producer"
	"calibra/pkg/platform/outbox"
)

// Publisher is the subset of the Kafka producer the worker needs.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox and publishes pending entries. Delivery is
// at-least-once: an entry published but not marked is sent again on the
// next poll, keyed by handle so consumers can deduplicate.
type Worker struct {
	store        outbox.Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	drainTimeout time.Duration
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) {
		if topic != "" {
			w.topic = topic
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        "calibra.certification.events",
		batchSize:    100,
		pollInterval: 250 * time.Millisecond,
		drainTimeout: 10 * time.Second,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left with a short
// deadline. It always returns nil so it can sit in an errgroup.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll handles one batch and returns how many entries were published.
func (w *Worker) Poll(ctx context.Context) int {
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to fetch outbox entries", "error", err)
		w.incFailures()
		return 0
	}
	if len(entries) == 0 {
		w.setPending(ctx)
		return 0
	}
	if w.metrics != nil {
		w.metrics.BatchSize.Observe(float64(len(entries)))
	}

	published := 0
	for _, entry := range entries {
		if err := w.publish(ctx, entry); err != nil {
			w.logger.ErrorContext(ctx, "failed to publish outbox entry",
				"id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			w.incFailures()
			continue
		}
		if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
			w.logger.ErrorContext(ctx, "failed to mark outbox entry processed",
				"id", entry.ID,
				"error", err,
			)
			continue
		}
		published++
		if w.metrics != nil {
			w.metrics.PublishedTotal.Inc()
		}
	}
	w.setPending(ctx)
	return published
}

func (w *Worker) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()
	err := w.publisher.Produce(ctx, &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			"outbox_id":  entry.ID.String(),
			"event_type": entry.EventType,
		},
	})
	if err == nil && w.metrics != nil {
		w.metrics.PublishDuration.Observe(time.Since(start).Seconds())
	}
	return err
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	w.logger.Info("draining outbox worker")
	for ctx.Err() == nil {
		if w.Poll(ctx) == 0 {
			return
		}
	}
}

func (w *Worker) incFailures() {
	if w.metrics != nil {
		w.metrics.PublishFailures.Inc()
	}
}

func (w *Worker) setPending(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	if n, err := w.store.CountPending(ctx); err == nil {
		w.metrics.PendingDepth.Set(float64(n))
	}
}
