package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Submitter,IssuerResolver,Authorizer
//go:generate mockgen -source=../issuer/issuer.go -destination=mocks/issuer_mock.go -package=mocks Issuer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"calibra/internal/certification/events"
	"calibra/internal/certification/metrics"
	"calibra/internal/certification/models"
	"calibra/internal/certification/service/mocks"
	"calibra/internal/certification/store"
	dErrors "calibra/pkg/domain-errors"
	platformtestutil "calibra/pkg/testutil"
)

const (
	oracleID  = "oracle-router"
	recipient = "0x1111111111111111111111111111111111111111"
	source    = "return checkAccreditation(args[0])"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	submitter *mocks.MockSubmitter
	issuer    *mocks.MockIssuer
	store     *store.InMemoryStore
	events    *events.InMemoryStore
	metrics   *metrics.Metrics
	service   *Service
	handles   int
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.submitter = mocks.NewMockSubmitter(s.ctrl)
	s.issuer = mocks.NewMockIssuer(s.ctrl)
	s.store = store.NewInMemory()
	s.events = events.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.handles = 0
	s.service = NewService(
		s.store,
		s.submitter,
		events.NewPublisher(s.events),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithTransportIdentity(oracleID),
		WithVerificationSource(source),
		WithIssuer("memory://ledger", s.issuer),
		WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// initiate runs a successful Initiate and returns the minted handle.
func (s *ServiceSuite) initiate(subject, contentRef string) models.Handle {
	s.handles++
	handle := models.Handle(fmt.Sprintf("0x%064x", s.handles))
	s.submitter.EXPECT().
		Submit(gomock.Any(), models.Query{Source: source, Args: []string{subject}}).
		Return(handle, nil)

	got, err := s.service.Initiate(context.Background(), recipient, []string{subject, contentRef})
	s.Require().NoError(err)
	s.Require().Equal(handle, got)
	return got
}

func (s *ServiceSuite) deliver(handle models.Handle, response, errPayload []byte) error {
	return s.service.Deliver(context.Background(), oracleID, models.Callback{Handle: handle, Response: response, Err: errPayload})
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *ServiceSuite) TestInitiateRecordsPendingRequest() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")

	req, err := s.service.Get(context.Background(), handle)
	s.Require().NoError(err)
	s.Equal("LAB-001", req.Subject)
	s.Equal(recipient, req.Recipient)
	s.Equal("ipfs://cert-1", req.ContentReference)
	s.Equal(models.StatePending, req.State())
	s.Zero(req.Result)
	s.False(req.CreatedAt.IsZero())
	s.Equal([]events.Type{events.TypeRequestInitiated}, s.events.Types(handle))
	s.InDelta(1, testutil.ToFloat64(s.metrics.PendingRequests), 0)
}

func (s *ServiceSuite) TestScenario1_SuccessIssuesOnce() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")
	s.issuer.EXPECT().Issue(gomock.Any(), recipient, "ipfs://cert-1").Return(models.TokenID("7"), nil).Times(1)

	s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))

	got := s.events.ListByHandle(handle)
	s.Require().Len(got, 2)
	s.Equal(events.TypeVerificationRecorded, got[1].Type)
	s.Require().NotNil(got[1].Result)
	s.Equal(uint64(1), *got[1].Result)

	req, err := s.service.Get(context.Background(), handle)
	s.Require().NoError(err)
	s.True(req.Fulfilled)
	s.Equal(uint64(1), req.Result)
	s.NotNil(req.FulfilledAt)
	s.InDelta(1, testutil.ToFloat64(s.metrics.Callbacks.WithLabelValues("issued")), 0)
}

func (s *ServiceSuite) TestScenario2_RejectedSubjectNotIssued() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")
	s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.deliver(handle, models.EncodeResult(0), nil))

	got := s.events.ListByHandle(handle)
	s.Require().Len(got, 3)
	s.Equal(events.TypeVerificationRecorded, got[1].Type)
	s.Equal(events.TypeSubjectRejected, got[2].Type)
	s.Equal("subject not accredited", got[2].Reason)
}

func (s *ServiceSuite) TestNonSuccessResultsAreRejections() {
	for _, result := range []uint64{2, 255, 1 << 40} {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.Require().NoError(s.deliver(handle, models.EncodeResult(result), nil))

		types := s.events.Types(handle)
		s.Equal(events.TypeSubjectRejected, types[len(types)-1], "result %d", result)
	}
}

func (s *ServiceSuite) TestScenario3_TransportErrorPath() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")

	s.Require().NoError(s.deliver(handle, nil, []byte("transport timeout")))

	got := s.events.ListByHandle(handle)
	s.Require().Len(got, 2)
	s.Equal(events.TypeVerificationTransportFailed, got[1].Type)
	s.Equal("transport timeout", got[1].Error)

	req, err := s.service.Get(context.Background(), handle)
	s.Require().NoError(err)
	s.True(req.Fulfilled)
	s.Zero(req.Result)
}

func (s *ServiceSuite) TestScenario4_SecondDeliveryRejected() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")
	s.issuer.EXPECT().Issue(gomock.Any(), recipient, "ipfs://cert-1").Return(models.TokenID("7"), nil).Times(1)
	s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))
	before := s.events.ListByHandle(handle)

	err := s.deliver(handle, models.EncodeResult(1), nil)
	s.requireCode(err, dErrors.CodeAlreadyFulfilled)

	s.Run("any payload is rejected", func() {
		s.requireCode(s.deliver(handle, nil, []byte("late error")), dErrors.CodeAlreadyFulfilled)
		s.requireCode(s.deliver(handle, models.EncodeResult(0), nil), dErrors.CodeAlreadyFulfilled)
	})

	s.Equal(before, s.events.ListByHandle(handle), "first delivery's events are unchanged")
	req, err := s.service.Get(context.Background(), handle)
	s.Require().NoError(err)
	s.Equal(uint64(1), req.Result)
}

func (s *ServiceSuite) TestScenario5_UnknownHandle() {
	err := s.deliver("0xdead", nil, nil)
	s.requireCode(err, dErrors.CodeUnexpectedRequestID)
	s.Empty(s.events.All())
}

func (s *ServiceSuite) TestScenario6_IssuanceFailureIsContained() {
	s.Run("error", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.issuer.EXPECT().Issue(gomock.Any(), recipient, "ipfs://cert-1").Return(models.TokenID(""), errors.New("ledger down"))

		s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))
		s.assertIssuanceFailed(handle)
	})

	s.Run("panic", func() {
		handle := s.initiate("LAB-002", "ipfs://cert-2")
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, string, string) (models.TokenID, error) { panic("boom") })

		s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))
		s.assertIssuanceFailed(handle)
	})

	s.Run("empty token id", func() {
		handle := s.initiate("LAB-003", "ipfs://cert-3")
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Return(models.TokenID(""), nil)

		s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))
		s.assertIssuanceFailed(handle)
	})

	s.InDelta(3, testutil.ToFloat64(s.metrics.IssuanceFailures), 0)
}

func (s *ServiceSuite) assertIssuanceFailed(handle models.Handle) {
	s.Equal([]events.Type{
		events.TypeRequestInitiated,
		events.TypeVerificationRecorded,
		events.TypeIssuanceFailed,
	}, s.events.Types(handle))

	req, err := s.service.Get(context.Background(), handle)
	s.Require().NoError(err)
	s.True(req.Fulfilled)
}

func (s *ServiceSuite) TestIssuerSeesUncancelledContext() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")
	s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _, _ string) (models.TokenID, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "7", nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Require().NoError(s.service.Deliver(ctx, oracleID, models.Callback{Handle: handle, Response: models.EncodeResult(1)}))
	s.Equal(events.TypeVerificationRecorded, s.events.Types(handle)[1])
	s.Len(s.events.Types(handle), 2, "no IssuanceFailed for a cancelled callback context")
}

func (s *ServiceSuite) TestDeliverPayloadEdgeCases() {
	s.Run("both payloads prefer response", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.Require().NoError(s.deliver(handle, models.EncodeResult(0), []byte("ignored")))
		s.Equal(events.TypeSubjectRejected, s.events.Types(handle)[2])
	})

	s.Run("neither payload takes the error path", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.Require().NoError(s.deliver(handle, nil, nil))
		got := s.events.ListByHandle(handle)
		s.Equal(events.TypeVerificationTransportFailed, got[1].Type)
		s.Empty(got[1].Error)
	})

	s.Run("malformed response leaves request pending", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		tooWide := make([]byte, 33)
		tooWide[0] = 1
		overflow := make([]byte, 32)
		overflow[0] = 1

		s.requireCode(s.deliver(handle, tooWide, nil), dErrors.CodeInvalidArguments)
		s.requireCode(s.deliver(handle, overflow, nil), dErrors.CodeInvalidArguments)

		req, err := s.service.Get(context.Background(), handle)
		s.Require().NoError(err)
		s.False(req.Fulfilled)
		s.Equal([]events.Type{events.TypeRequestInitiated}, s.events.Types(handle))
	})

	s.Run("short big-endian response decodes", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Return(models.TokenID("9"), nil)
		s.Require().NoError(s.deliver(handle, []byte{0x01}, nil))
	})
}

// Protocol preconditions are checked before the response is decoded, so a
// malformed payload never masks an unknown or already fulfilled handle.
func (s *ServiceSuite) TestProtocolErrorsWinOverPayloadErrors() {
	tooWide := make([]byte, 33)
	tooWide[0] = 1
	overflow := make([]byte, 32)
	overflow[0] = 1
	payloads := map[string][]byte{
		"valid":    models.EncodeResult(1),
		"too wide": tooWide,
		"overflow": overflow,
	}

	s.Run("unknown handle", func() {
		for name, payload := range payloads {
			s.requireCode(s.deliver("0xdead", payload, nil), dErrors.CodeUnexpectedRequestID)
			s.requireCode(s.deliver("0xdead", payload, []byte("err")), dErrors.CodeUnexpectedRequestID)
			s.Empty(s.events.ListByHandle("0xdead"), name)
		}
		s.requireCode(s.deliver("0xdead", nil, nil), dErrors.CodeUnexpectedRequestID)
	})

	s.Run("fulfilled handle", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.issuer.EXPECT().Issue(gomock.Any(), recipient, "ipfs://cert-1").Return(models.TokenID("3"), nil).Times(1)
		s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))
		before := s.events.Types(handle)

		for name, payload := range payloads {
			s.requireCode(s.deliver(handle, payload, nil), dErrors.CodeAlreadyFulfilled)
			s.Equal(before, s.events.Types(handle), name)
		}
		s.requireCode(s.deliver(handle, nil, []byte("late error")), dErrors.CodeAlreadyFulfilled)

		req, err := s.service.Get(context.Background(), handle)
		s.Require().NoError(err)
		s.Equal(uint64(1), req.Result)
	})

	s.Run("pending handle still validates payload", func() {
		handle := s.initiate("LAB-001", "ipfs://cert-1")
		s.requireCode(s.deliver(handle, tooWide, nil), dErrors.CodeInvalidArguments)

		s.issuer.EXPECT().Issue(gomock.Any(), recipient, "ipfs://cert-1").Return(models.TokenID("4"), nil).Times(1)
		s.Require().NoError(s.deliver(handle, models.EncodeResult(1), nil))
		s.requireCode(s.deliver(handle, tooWide, nil), dErrors.CodeAlreadyFulfilled)
	})
}

func (s *ServiceSuite) TestDeliverOnlyFromTransport() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")

	err := s.service.Deliver(context.Background(), recipient, models.Callback{Handle: handle, Response: models.EncodeResult(1)})
	s.requireCode(err, dErrors.CodeForbidden)

	s.requireCode(s.deliver("", models.EncodeResult(1), nil), dErrors.CodeUnexpectedRequestID)

	req, err := s.service.Get(context.Background(), handle)
	s.Require().NoError(err)
	s.False(req.Fulfilled)
}

func (s *ServiceSuite) TestConcurrentDeliveriesSingleWinner() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")
	s.issuer.EXPECT().Issue(gomock.Any(), recipient, "ipfs://cert-1").Return(models.TokenID("7"), nil).Times(1)

	res := platformtestutil.RunConcurrent(32, func(int) error {
		return s.deliver(handle, models.EncodeResult(1), nil)
	})

	s.Equal(1, res.Successes)
	s.Equal(31, res.Count(dErrors.New(dErrors.CodeAlreadyFulfilled, "")))
	s.Len(s.events.ListByHandle(handle), 2)
}

func (s *ServiceSuite) TestInitiateValidation() {
	s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)

	cases := []struct {
		name      string
		recipient string
		args      []string
		code      dErrors.Code
	}{
		{"no args", recipient, nil, dErrors.CodeInvalidArguments},
		{"one arg", recipient, []string{"LAB-001"}, dErrors.CodeInvalidArguments},
		{"blank subject", recipient, []string{" ", "ipfs://cert-1"}, dErrors.CodeInvalidArguments},
		{"blank content", recipient, []string{"LAB-001", ""}, dErrors.CodeInvalidArguments},
		{"no recipient", "", []string{"LAB-001", "ipfs://cert-1"}, dErrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Initiate(context.Background(), tc.recipient, tc.args)
			s.requireCode(err, tc.code)
		})
	}

	n, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.Zero(n)
	s.Empty(s.events.All())
}

func (s *ServiceSuite) TestInitiateConfigurationAndPause() {
	s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0)
	args := []string{"LAB-001", "ipfs://cert-1"}

	s.Run("paused", func() {
		s.service.Pause(context.Background())
		defer s.service.Unpause(context.Background())
		_, err := s.service.Initiate(context.Background(), recipient, args)
		s.requireCode(err, dErrors.CodePaused)
	})

	s.Run("no source", func() {
		svc := NewService(s.store, s.submitter, nil, nil, WithIssuer("memory://ledger", s.issuer))
		_, err := svc.Initiate(context.Background(), recipient, args)
		s.requireCode(err, dErrors.CodeInvalidConfiguration)
	})

	s.Run("no issuer", func() {
		svc := NewService(s.store, s.submitter, nil, nil, WithVerificationSource(source))
		_, err := svc.Initiate(context.Background(), recipient, args)
		s.requireCode(err, dErrors.CodeInvalidConfiguration)
	})

	s.InDelta(1, testutil.ToFloat64(s.metrics.InitiateRejected.WithLabelValues("paused")), 0)
}

func (s *ServiceSuite) TestPausedStillAcceptsCallbacks() {
	handle := s.initiate("LAB-001", "ipfs://cert-1")
	s.service.Pause(context.Background())

	s.Require().NoError(s.deliver(handle, models.EncodeResult(0), nil))
	s.True(s.service.Settings(context.Background()).Paused)
}

func (s *ServiceSuite) TestInitiateAuthorizer() {
	authz := mocks.NewMockAuthorizer(s.ctrl)
	authz.EXPECT().AuthorizeInitiate(gomock.Any(), recipient).Return(dErrors.New(dErrors.CodeForbidden, "no"))
	svc := NewService(s.store, s.submitter, nil, nil,
		WithAuthorizer(authz),
		WithVerificationSource(source),
		WithIssuer("memory://ledger", s.issuer),
	)

	_, err := svc.Initiate(context.Background(), recipient, []string{"LAB-001", "ipfs://cert-1"})
	s.requireCode(err, dErrors.CodeForbidden)
}

func (s *ServiceSuite) TestInitiateStrictContentReference() {
	svc := NewService(s.store, s.submitter, nil, nil,
		WithContentValidator(models.StrictIPFSReference),
		WithVerificationSource(source),
		WithIssuer("memory://ledger", s.issuer),
	)

	_, err := svc.Initiate(context.Background(), recipient, []string{"LAB-001", "ipfs://cert-1"})
	s.requireCode(err, dErrors.CodeInvalidArguments)

	s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Handle("0xcid"), nil)
	_, err = svc.Initiate(context.Background(), recipient,
		[]string{"LAB-001", "ipfs://bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi/cert.json"})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestInitiateTransportFailures() {
	args := []string{"LAB-001", "ipfs://cert-1"}

	s.Run("submit error", func() {
		s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Handle(""), errors.New("gateway down"))
		_, err := s.service.Initiate(context.Background(), recipient, args)
		s.requireCode(err, dErrors.CodeTransportUnavailable)
	})

	s.Run("empty handle", func() {
		s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Handle(""), nil)
		_, err := s.service.Initiate(context.Background(), recipient, args)
		s.requireCode(err, dErrors.CodeTransportUnavailable)
	})

	s.Run("reused handle", func() {
		s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Handle("0xdup"), nil).Times(2)
		_, err := s.service.Initiate(context.Background(), recipient, args)
		s.Require().NoError(err)
		_, err = s.service.Initiate(context.Background(), recipient, args)
		s.requireCode(err, dErrors.CodeConflict)
	})
}

func (s *ServiceSuite) TestGetUnknown() {
	_, err := s.service.Get(context.Background(), "0xnope")
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestEmitFailureDoesNotFailDeliver() {
	failing := events.EmitterFunc(func(context.Context, events.Event) error { return errors.New("sink down") })
	svc := NewService(s.store, s.submitter, failing, nil,
		WithTransportIdentity(oracleID),
		WithVerificationSource(source),
		WithIssuer("memory://ledger", s.issuer),
	)
	s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Handle("0xemit"), nil)
	handle, err := svc.Initiate(context.Background(), recipient, []string{"LAB-001", "ipfs://cert-1"})
	s.Require().NoError(err)

	s.Require().NoError(svc.Deliver(context.Background(), oracleID, models.Callback{Handle: handle, Err: []byte("x")}))
}

// StoreErrorsSuite checks the store error contract is translated once.
type StoreErrorsSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	service *Service
}

func TestStoreErrorsSuite(t *testing.T) {
	suite.Run(t, new(StoreErrorsSuite))
}

func (s *StoreErrorsSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	submitter := mocks.NewMockSubmitter(s.ctrl)
	submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Handle("0xabc"), nil).AnyTimes()
	s.service = NewService(s.store, submitter, nil, nil,
		WithTransportIdentity(oracleID),
		WithVerificationSource(source),
		WithIssuer("memory://ledger", mocks.NewMockIssuer(s.ctrl)),
	)
}

func (s *StoreErrorsSuite) TestCreateFailure() {
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := s.service.Initiate(context.Background(), recipient, []string{"LAB-001", "ipfs://cert-1"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorsSuite) TestDeliverLoadFailure() {
	s.store.EXPECT().Get(gomock.Any(), models.Handle("0xabc")).Return(nil, errors.New("connection reset"))

	err := s.service.Deliver(context.Background(), oracleID, models.Callback{Handle: "0xabc", Err: []byte("x")})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorsSuite) TestMarkFulfilledFailure() {
	s.store.EXPECT().Get(gomock.Any(), models.Handle("0xabc")).
		Return(&models.VerificationRequest{Handle: "0xabc"}, nil)
	s.store.EXPECT().MarkFulfilled(gomock.Any(), models.Handle("0xabc"), uint64(0), gomock.Any()).
		Return(nil, errors.New("connection reset"))

	err := s.service.Deliver(context.Background(), oracleID, models.Callback{Handle: "0xabc", Err: []byte("x")})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorsSuite) TestGetFailure() {
	s.store.EXPECT().Get(gomock.Any(), models.Handle("0xabc")).Return(nil, errors.New("connection reset"))

	_, err := s.service.Get(context.Background(), "0xabc")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorsSuite) TestSyncPending() {
	s.store.EXPECT().CountPending(gomock.Any()).Return(int64(4), nil)
	s.Require().NoError(s.service.SyncPending(context.Background()))

	s.store.EXPECT().CountPending(gomock.Any()).Return(int64(0), errors.New("down"))
	s.Error(s.service.SyncPending(context.Background()))
}
