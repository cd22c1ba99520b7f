// Package tracer is a small tracing abstraction for the certification
// module so that service code does not import OpenTelemetry directly.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashRecipient shortens a recipient identity to a stable 16-hex-char
// digest so traces can be correlated without carrying the raw address.
func HashRecipient(recipient string) string {
	if recipient == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(recipient))
	return hex.EncodeToString(sum[:8])
}

// Span names.
const (
	SpanInitiate = "certification.initiate"
	SpanSubmit   = "certification.transport.submit"
	SpanDeliver  = "certification.deliver"
	SpanIssue    = "certification.issue"
)

// Attribute keys.
const (
	AttrHandle    = "handle"
	AttrSubject   = "subject"
	AttrRecipient = "recipient_hash"
	AttrResult    = "result"
	AttrOutcome   = "outcome"
)
