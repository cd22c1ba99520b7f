package service

import (
	"context"
	"strings"

	"calibra/internal/certification/issuer"
	"calibra/internal/certification/models"
	dErrors "calibra/pkg/domain-errors"
	"calibra/pkg/requestcontext"
)

func (s *Service) snapshot() (models.Settings, issuer.Issuer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Settings{
		VerificationSource: s.source,
		IssuerTarget:       s.issuerTarget,
		Paused:             s.paused,
	}, s.issuer
}

// Settings returns the current runtime settings.
func (s *Service) Settings(_ context.Context) models.Settings {
	settings, _ := s.snapshot()
	return settings
}

// SetIssuerTarget resolves target and makes it the delegate for every
// later issuance, including callbacks for requests already pending.
func (s *Service) SetIssuerTarget(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return dErrors.New(dErrors.CodeInvalidArguments, "issuer target is required")
	}
	if s.resolver == nil {
		return dErrors.New(dErrors.CodeInvalidConfiguration, "no issuer resolver configured")
	}
	iss, err := s.resolver.Resolve(target)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidArguments, "invalid issuer target")
	}

	s.mu.Lock()
	s.issuerTarget = target
	s.issuer = iss
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "issuer target updated",
		"target", target,
		"actor", requestcontext.Caller(ctx),
	)
	return nil
}

func (s *Service) SetVerificationSource(ctx context.Context, source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return dErrors.New(dErrors.CodeInvalidArguments, "verification source is required")
	}

	s.mu.Lock()
	s.source = source
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "verification source updated",
		"source_bytes", len(source),
		"actor", requestcontext.Caller(ctx),
	)
	return nil
}

// Pause blocks new Initiate calls. Callbacks for pending requests are
// still accepted.
func (s *Service) Pause(ctx context.Context) {
	s.setPaused(ctx, true)
}

func (s *Service) Unpause(ctx context.Context) {
	s.setPaused(ctx, false)
}

func (s *Service) setPaused(ctx context.Context, paused bool) {
	s.mu.Lock()
	changed := s.paused != paused
	s.paused = paused
	s.mu.Unlock()

	if changed {
		s.logger.InfoContext(ctx, "certification pause toggled",
			"paused", paused,
			"actor", requestcontext.Caller(ctx),
		)
	}
}

// SyncPending seeds the pending gauge from the store.
func (s *Service) SyncPending(ctx context.Context) error {
	n, err := s.store.CountPending(ctx)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SetPending(n)
	}
	return nil
}
