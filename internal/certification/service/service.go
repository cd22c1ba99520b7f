// Package service is the certification request lifecycle: Initiate submits
// a verification query and records it as pending, Deliver applies the
// oracle's single callback and dispatches issuance.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"calibra/internal/certification/events"
	"calibra/internal/certification/issuer"
	"calibra/internal/certification/metrics"
	"calibra/internal/certification/models"
	"calibra/internal/certification/store"
	"calibra/internal/certification/tracer"
	dErrors "calibra/pkg/domain-errors"
	platformsync "calibra/pkg/platform/sync"
	"calibra/pkg/requestcontext"
)

// Store persists verification requests.
// Error Contract:
//   - Create returns store.ErrConflict when the handle exists
//   - Get returns store.ErrNotFound when no record exists
//   - MarkFulfilled returns store.ErrNotFound or store.ErrAlreadyFulfilled and
//     then leaves the record untouched
type Store interface {
	Create(ctx context.Context, req *models.VerificationRequest) error
	Get(ctx context.Context, handle models.Handle) (*models.VerificationRequest, error)
	MarkFulfilled(ctx context.Context, handle models.Handle, result uint64, at time.Time) (*models.VerificationRequest, error)
	CountPending(ctx context.Context) (int64, error)
}

// Submitter is the verification transport.
type Submitter interface {
	Submit(ctx context.Context, query models.Query) (models.Handle, error)
}

// IssuerResolver turns an admin-supplied target into an issuance delegate.
type IssuerResolver interface {
	Resolve(target string) (issuer.Issuer, error)
}

// Authorizer decides whether caller may open a verification request.
type Authorizer interface {
	AuthorizeInitiate(ctx context.Context, caller string) error
}

type Option func(*Service)

const (
	defaultIssuerTimeout = 10 * time.Second
	defaultShardCount    = 64
)

type Service struct {
	store      Store
	submitter  Submitter
	emitter    events.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	authorizer Authorizer
	resolver   IssuerResolver
	validate   models.ContentValidator
	locks      *platformsync.ShardedMutex

	transportIdentity string
	secretsReference  string
	issuerTimeout     time.Duration

	mu           sync.RWMutex
	source       string
	issuerTarget string
	issuer       issuer.Issuer
	paused       bool
}

func NewService(store Store, submitter Submitter, emitter events.Emitter, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:         store,
		submitter:     submitter,
		emitter:       emitter,
		logger:        logger,
		tracer:        tracer.NewNoop(),
		authorizer:    AllowAll{},
		validate:      models.AnyContentReference,
		issuerTimeout: defaultIssuerTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.locks == nil {
		svc.locks = platformsync.NewShardedMutex(defaultShardCount)
	}
	return svc
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.authorizer = a
		}
	}
}

func WithIssuerResolver(r IssuerResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithIssuer installs an already-resolved delegate under target.
func WithIssuer(target string, iss issuer.Issuer) Option {
	return func(s *Service) {
		s.issuerTarget = target
		s.issuer = iss
	}
}

func WithVerificationSource(source string) Option {
	return func(s *Service) { s.source = strings.TrimSpace(source) }
}

// WithTransportIdentity sets the only caller allowed to Deliver.
func WithTransportIdentity(identity string) Option {
	return func(s *Service) { s.transportIdentity = identity }
}

func WithSecretsReference(ref string) Option {
	return func(s *Service) { s.secretsReference = ref }
}

func WithContentValidator(v models.ContentValidator) Option {
	return func(s *Service) {
		if v != nil {
			s.validate = v
		}
	}
}

// WithIssuerTimeout bounds a single issuance call. Defaults to 10s.
func WithIssuerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.issuerTimeout = d
		}
	}
}

func WithShardCount(n int) Option {
	return func(s *Service) { s.locks = platformsync.NewShardedMutex(n) }
}

// Initiate validates the request, submits the verification query and
// records a pending request for the returned handle. It never issues.
func (s *Service) Initiate(ctx context.Context, recipient string, args []string) (handle models.Handle, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInitiate, tracer.String(tracer.AttrRecipient, tracer.HashRecipient(recipient)))
	defer func() {
		if err != nil {
			s.observeInitiateRejected(err)
		}
		span.End(err)
	}()

	if strings.TrimSpace(recipient) == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}
	if err := s.authorizer.AuthorizeInitiate(ctx, recipient); err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", dErrors.New(dErrors.CodeInvalidArguments, "expected subject and content reference")
	}
	subject := strings.TrimSpace(args[0])
	contentRef := strings.TrimSpace(args[1])
	if subject == "" {
		return "", dErrors.New(dErrors.CodeInvalidArguments, "subject is required")
	}
	if err := s.validate(contentRef); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidArguments, "invalid content reference")
	}

	settings, iss := s.snapshot()
	if settings.Paused {
		return "", dErrors.New(dErrors.CodePaused, "new certification requests are paused")
	}
	if settings.VerificationSource == "" {
		return "", dErrors.New(dErrors.CodeInvalidConfiguration, "verification source is not configured")
	}
	if iss == nil {
		return "", dErrors.New(dErrors.CodeInvalidConfiguration, "issuer target is not configured")
	}
	span.SetAttributes(tracer.String(tracer.AttrSubject, subject))

	handle, err = s.submit(ctx, models.Query{
		Source:           settings.VerificationSource,
		Args:             []string{subject},
		SecretsReference: s.secretsReference,
	})
	if err != nil {
		return "", err
	}
	span.SetAttributes(tracer.String(tracer.AttrHandle, handle.String()))

	req := &models.VerificationRequest{
		Handle:           handle,
		Subject:          subject,
		Recipient:        recipient,
		ContentReference: contentRef,
		CreatedAt:        requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "submitted request could not be recorded",
			"handle", handle,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if errors.Is(err, store.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeConflict, "transport reused an existing handle")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification request")
	}

	s.emit(ctx, events.RequestInitiated(handle))
	if s.metrics != nil {
		s.metrics.IncInitiated()
	}
	s.logger.InfoContext(ctx, "verification requested",
		"handle", handle,
		"subject", subject,
		"request_id", requestcontext.RequestID(ctx),
	)
	return handle, nil
}

func (s *Service) submit(ctx context.Context, query models.Query) (handle models.Handle, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmit)
	defer func() { span.End(err) }()

	handle, err = s.submitter.Submit(ctx, query)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeTransportUnavailable, "verification transport rejected the request")
	}
	if handle == "" {
		return "", dErrors.New(dErrors.CodeTransportUnavailable, "verification transport returned an empty handle")
	}
	return handle, nil
}

// Get returns a stored request.
func (s *Service) Get(ctx context.Context, handle models.Handle) (*models.VerificationRequest, error) {
	req, err := s.store.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification request")
	}
	return req, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit certification event",
			"type", event.Type,
			"handle", event.Handle,
			"error", err,
		)
	}
}

func (s *Service) observeInitiateRejected(err error) {
	if s.metrics != nil {
		s.metrics.IncInitiateRejected(string(dErrors.CodeOf(err)))
	}
}
