// Package events defines the certification lifecycle events and the
// publisher that ships them to a sink.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"calibra/internal/certification/models"
)

type Type string

const (
	TypeRequestInitiated            Type = "request_initiated"
	TypeVerificationRecorded        Type = "verification_recorded"
	TypeVerificationTransportFailed Type = "verification_transport_failed"
	TypeSubjectRejected             Type = "subject_rejected"
	TypeIssuanceFailed              Type = "issuance_failed"
)

// Event is one lifecycle fact. Result is set only for VerificationRecorded;
// Reason for SubjectRejected; Error for VerificationTransportFailed.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Type      Type          `json:"type"`
	Handle    models.Handle `json:"handle"`
	Result    *uint64       `json:"result,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Emitter accepts events from the service.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, event Event) error

func (f EmitterFunc) Emit(ctx context.Context, event Event) error { return f(ctx, event) }

// Sink persists events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

func newEvent(t Type, handle models.Handle) Event {
	return Event{ID: uuid.New(), Type: t, Handle: handle}
}

func RequestInitiated(handle models.Handle) Event {
	return newEvent(TypeRequestInitiated, handle)
}

func VerificationRecorded(handle models.Handle, result uint64) Event {
	e := newEvent(TypeVerificationRecorded, handle)
	e.Result = &result
	return e
}

func VerificationTransportFailed(handle models.Handle, transportErr string) Event {
	e := newEvent(TypeVerificationTransportFailed, handle)
	e.Error = transportErr
	return e
}

func SubjectRejected(handle models.Handle, reason string) Event {
	e := newEvent(TypeSubjectRejected, handle)
	e.Reason = reason
	return e
}

func IssuanceFailed(handle models.Handle) Event {
	return newEvent(TypeIssuanceFailed, handle)
}
