package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"calibra/internal/certification/models"
)

// InMemoryStore keeps records in a map guarded by one RWMutex.
// Fulfilled records are retained.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[models.Handle]*models.VerificationRequest
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[models.Handle]*models.VerificationRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.VerificationRequest) error {
	if req == nil || req.Handle == "" {
		return fmt.Errorf("verification request with handle is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.Handle]; exists {
		return ErrConflict
	}
	s.requests[req.Handle] = clone(req)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, handle models.Handle) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(req), nil
}

func (s *InMemoryStore) MarkFulfilled(_ context.Context, handle models.Handle, result uint64, at time.Time) (*models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[handle]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Fulfilled {
		return nil, ErrAlreadyFulfilled
	}
	req.Fulfill(result, at)
	return clone(req), nil
}

func (s *InMemoryStore) CountPending(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, req := range s.requests {
		if !req.Fulfilled {
			n++
		}
	}
	return n, nil
}

func clone(req *models.VerificationRequest) *models.VerificationRequest {
	cp := *req
	if req.FulfilledAt != nil {
		t := *req.FulfilledAt
		cp.FulfilledAt = &t
	}
	return &cp
}
