package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calibra/internal/certification/events"
	"calibra/internal/certification/issuer"
	"calibra/internal/certification/models"
	"calibra/internal/certification/store"
	"calibra/internal/certification/tracer"
	dErrors "calibra/pkg/domain-errors"
	"calibra/pkg/requestcontext"
)

// Deliver applies the transport's callback for cb.Handle. The request is
// marked fulfilled before anything is dispatched, so a second delivery
// fails with request_already_fulfilled whatever the first one triggered.
// Issuance and transport failures are reported through events; Deliver
// returns nil for them.
func (s *Service) Deliver(ctx context.Context, caller string, cb models.Callback) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDeliver, tracer.String(tracer.AttrHandle, cb.Handle.String()))
	defer func() {
		if err != nil && s.metrics != nil {
			s.metrics.IncCallbackRejected(string(dErrors.CodeOf(err)))
		}
		span.End(err)
	}()

	if s.transportIdentity == "" || caller != s.transportIdentity {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the verification transport")
	}
	if cb.Handle == "" {
		return dErrors.New(dErrors.CodeUnexpectedRequestID, "no verification request for handle")
	}

	req, err := s.fulfil(ctx, cb)
	if err != nil {
		return err
	}

	var outcome models.Outcome
	if cb.HasResponse() {
		span.SetAttributes(tracer.Int64(tracer.AttrResult, int64(req.Result)))
		s.emit(ctx, events.VerificationRecorded(req.Handle, req.Result))
		if req.Result == models.SuccessResult {
			outcome = s.dispatchIssuance(ctx, req)
		} else {
			reason := models.RejectionReason(req.Result)
			s.emit(ctx, events.SubjectRejected(req.Handle, reason))
			outcome = models.OutcomeRejected
		}
	} else {
		s.emit(ctx, events.VerificationTransportFailed(req.Handle, string(cb.Err)))
		outcome = models.OutcomeTransportFailed
	}

	span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
	if s.metrics != nil {
		s.metrics.ObserveCallback(outcome)
	}
	s.logger.InfoContext(ctx, "verification callback applied",
		"handle", req.Handle,
		"result", req.Result,
		"outcome", outcome,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// fulfil checks the handle's preconditions, decodes the response and flips
// the request to fulfilled, all under the handle's shard. Protocol errors
// win over payload errors.
func (s *Service) fulfil(ctx context.Context, cb models.Callback) (*models.VerificationRequest, error) {
	key := cb.Handle.String()
	lockStart := time.Now()
	var req *models.VerificationRequest
	err := s.locks.Do(key, func() error {
		if s.metrics != nil {
			s.metrics.ObserveLockWait(time.Since(lockStart))
		}

		current, err := s.store.Get(ctx, cb.Handle)
		if err != nil {
			return translateStoreError(err)
		}
		if current.Fulfilled {
			return translateStoreError(store.ErrAlreadyFulfilled)
		}

		var result uint64
		if cb.HasResponse() {
			if result, err = models.DecodeResult(cb.Response); err != nil {
				return err
			}
		}

		req, err = s.store.MarkFulfilled(ctx, cb.Handle, result, requestcontext.Now(ctx))
		if err != nil {
			return translateStoreError(err)
		}
		return nil
	})
	return req, err
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeUnexpectedRequestID, "no verification request for handle")
	case errors.Is(err, store.ErrAlreadyFulfilled):
		return dErrors.New(dErrors.CodeAlreadyFulfilled, "verification request already fulfilled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record callback")
	}
}

// dispatchIssuance is the fault-isolation boundary: no error or panic from
// the delegate leaves this function.
func (s *Service) dispatchIssuance(ctx context.Context, req *models.VerificationRequest) models.Outcome {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrHandle, req.Handle.String()))

	_, iss := s.snapshot()
	start := time.Now()
	tokenID, err := s.callIssuer(ctx, iss, req)
	if s.metrics != nil {
		s.metrics.ObserveIssuance(time.Since(start))
	}
	span.End(err)

	if err != nil {
		s.logger.ErrorContext(ctx, "certificate issuance failed",
			"handle", req.Handle,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, events.IssuanceFailed(req.Handle))
		return models.OutcomeIssuanceFailed
	}
	s.logger.InfoContext(ctx, "certificate issued",
		"handle", req.Handle,
		"token_id", tokenID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return models.OutcomeIssued
}

func (s *Service) callIssuer(ctx context.Context, iss issuer.Issuer, req *models.VerificationRequest) (id models.TokenID, err error) {
	if iss == nil {
		return "", errors.New("issuer target is not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("issuer panicked: %v", r)
		}
	}()

	// the callback's own cancellation must not abort a recorded issuance
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.issuerTimeout)
	defer cancel()

	id, err = iss.Issue(ctx, req.Recipient, req.ContentReference)
	if err == nil && id == "" {
		err = errors.New("issuer returned an empty token id")
	}
	return id, err
}
