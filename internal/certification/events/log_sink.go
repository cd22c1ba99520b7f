package events

import (
	"context"
	"log/slog"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event Event) error {
	attrs := []any{
		"event_id", event.ID,
		"type", event.Type,
		"handle", event.Handle,
		"request_id", event.RequestID,
	}
	if event.Result != nil {
		attrs = append(attrs, "result", *event.Result)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	if event.Error != "" {
		attrs = append(attrs, "transport_error", event.Error)
	}
	s.logger.InfoContext(ctx, "certification event", attrs...)
	return nil
}
