package store

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"calibra/internal/certification/models"
	"calibra/pkg/testutil"
)

// contractSuite holds behaviour every backend must share. Backend suites
// embed it and set newStore.
type contractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
}

func (s *contractSuite) SetupTest() {
	s.store = s.newStore()
}

func pending(handle string) *models.VerificationRequest {
	return &models.VerificationRequest{
		Handle:           models.Handle(handle),
		Subject:          "LAB-001",
		Recipient:        "0x1111111111111111111111111111111111111111",
		ContentReference: "ipfs://cert-1",
		CreatedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *contractSuite) TestCreateAndGet() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("0xa1")))

	got, err := s.store.Get(ctx, "0xa1")
	s.Require().NoError(err)
	s.Equal("LAB-001", got.Subject)
	s.Equal("0x1111111111111111111111111111111111111111", got.Recipient)
	s.Equal("ipfs://cert-1", got.ContentReference)
	s.Zero(got.Result)
	s.False(got.Fulfilled)
	s.Nil(got.FulfilledAt)
	s.True(got.CreatedAt.Equal(pending("x").CreatedAt))
}

func (s *contractSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), "0xdead")
	s.ErrorIs(err, ErrNotFound)
}

func (s *contractSuite) TestCreateDuplicateHandle() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("0xa2")))

	dup := pending("0xa2")
	dup.Recipient = "0x2222222222222222222222222222222222222222"
	s.ErrorIs(s.store.Create(ctx, dup), ErrConflict)

	got, err := s.store.Get(ctx, "0xa2")
	s.Require().NoError(err)
	s.Equal("0x1111111111111111111111111111111111111111", got.Recipient, "recipient is immutable")
}

func (s *contractSuite) TestMarkFulfilledOnce() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("0xa3")))
	at := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	got, err := s.store.MarkFulfilled(ctx, "0xa3", 1, at)
	s.Require().NoError(err)
	s.True(got.Fulfilled)
	s.Equal(uint64(1), got.Result)
	s.Equal("ipfs://cert-1", got.ContentReference)
	s.Require().NotNil(got.FulfilledAt)
	s.True(got.FulfilledAt.Equal(at))

	_, err = s.store.MarkFulfilled(ctx, "0xa3", 0, at.Add(time.Minute))
	s.ErrorIs(err, ErrAlreadyFulfilled)

	stored, err := s.store.Get(ctx, "0xa3")
	s.Require().NoError(err)
	s.Equal(uint64(1), stored.Result, "second attempt must not change the result")
}

func (s *contractSuite) TestMarkFulfilledUnknown() {
	_, err := s.store.MarkFulfilled(context.Background(), "0xnone", 1, time.Now())
	s.ErrorIs(err, ErrNotFound)
}

func (s *contractSuite) TestLargeResultRoundTrips() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("0xa4")))
	_, err := s.store.MarkFulfilled(ctx, "0xa4", ^uint64(0), time.Now().UTC())
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, "0xa4")
	s.Require().NoError(err)
	s.Equal(^uint64(0), got.Result)
}

func (s *contractSuite) TestCountPending() {
	ctx := context.Background()
	for i := range 3 {
		s.Require().NoError(s.store.Create(ctx, pending(fmt.Sprintf("0xc%d", i))))
	}
	_, err := s.store.MarkFulfilled(ctx, "0xc0", 1, time.Now().UTC())
	s.Require().NoError(err)

	n, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.EqualValues(2, n)
}

func (s *contractSuite) TestConcurrentFulfilSingleWinner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("0xrace")))

	res := testutil.RunConcurrent(16, func(idx int) error {
		_, err := s.store.MarkFulfilled(ctx, "0xrace", uint64(idx%2), time.Now().UTC())
		return err
	})

	s.Equal(1, res.Successes)
	s.Equal(15, res.Count(ErrAlreadyFulfilled))
}
