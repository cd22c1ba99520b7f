// Package store owns every VerificationRequest record. The at-most-once
// fulfilment guarantee lives here: MarkFulfilled performs the existence
// check, the not-yet-fulfilled check and the write as one atomic step.
package store

import (
	"context"
	"errors"
	"time"

	"calibra/internal/certification/models"
)

var (
	ErrNotFound         = errors.New("verification request not found")
	ErrAlreadyFulfilled = errors.New("verification request already fulfilled")
	ErrConflict         = errors.New("verification request handle already exists")
)

// Store is implemented by the memory, postgres and redis backends.
type Store interface {
	// Create inserts a pending request; ErrConflict if the handle exists.
	Create(ctx context.Context, req *models.VerificationRequest) error
	// Get returns a copy of the record or ErrNotFound.
	Get(ctx context.Context, handle models.Handle) (*models.VerificationRequest, error)
	// MarkFulfilled moves a pending record to fulfilled with result, and
	// returns the updated record. ErrNotFound and ErrAlreadyFulfilled
	// leave the record untouched.
	MarkFulfilled(ctx context.Context, handle models.Handle, result uint64, at time.Time) (*models.VerificationRequest, error)
	// CountPending reports requests still awaiting a callback.
	CountPending(ctx context.Context) (int64, error)
}
