// Package issuer holds the issuance delegates the service calls once a
// subject is verified.
package issuer

import (
	"context"

	"calibra/internal/certification/models"
)

// Issuer mints a certificate token for recipient. Failures are returned,
// never swallowed.
type Issuer interface {
	Issue(ctx context.Context, recipient, contentReference string) (models.TokenID, error)
}

// Func adapts a function to Issuer.
type Func func(ctx context.Context, recipient, contentReference string) (models.TokenID, error)

func (f Func) Issue(ctx context.Context, recipient, contentReference string) (models.TokenID, error) {
	return f(ctx, recipient, contentReference)
}
