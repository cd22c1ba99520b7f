// Package transport submits verification queries to the oracle network and
// carries its single callback per handle back into the service.
package transport

import (
	"context"

	"calibra/internal/certification/models"
)

// Submitter sends a query and returns the handle the oracle will answer on.
type Submitter interface {
	Submit(ctx context.Context, query models.Query) (models.Handle, error)
}

// DeliverFunc is the callback entry point of the service, called with the
// transport identity as caller.
type DeliverFunc func(ctx context.Context, caller string, cb models.Callback) error
