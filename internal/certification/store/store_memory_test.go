package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type InMemoryStoreSuite struct {
	contractSuite
}

func TestInMemoryStoreSuite(t *testing.T) {
	s := new(InMemoryStoreSuite)
	s.newStore = func() Store { return NewInMemory() }
	suite.Run(t, s)
}

func (s *InMemoryStoreSuite) TestReturnedRecordIsACopy() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, pending("0xcopy")))

	got, err := s.store.Get(ctx, "0xcopy")
	s.Require().NoError(err)
	got.Recipient = "mutated"

	again, err := s.store.Get(ctx, "0xcopy")
	s.Require().NoError(err)
	s.NotEqual("mutated", again.Recipient)
}

func (s *InMemoryStoreSuite) TestCreateRequiresHandle() {
	s.Error(s.store.Create(context.Background(), pending("")))
	s.Error(s.store.Create(context.Background(), nil))
}
