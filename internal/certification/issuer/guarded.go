package issuer

import (
	"context"
	"errors"
	"fmt"

	"calibra/internal/certification/models"
	"calibra/pkg/platform/circuit"
)

// ErrCircuitOpen is returned without calling the delegate while the
// breaker is open.
var ErrCircuitOpen = errors.New("issuer circuit open")

// Guarded wraps an Issuer with a circuit breaker and converts panics in the
// delegate into errors.
type Guarded struct {
	next    Issuer
	breaker *circuit.Breaker
}

func NewGuarded(next Issuer, breaker *circuit.Breaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

func (g *Guarded) Issue(ctx context.Context, recipient, contentReference string) (id models.TokenID, err error) {
	if !g.breaker.Allow() {
		return "", ErrCircuitOpen
	}
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("issuer panicked: %v", r)
		}
		if err != nil {
			g.breaker.RecordFailure()
			return
		}
		g.breaker.RecordSuccess()
	}()
	return g.next.Issue(ctx, recipient, contentReference)
}

// State exposes the breaker state for the admin API.
func (g *Guarded) State() circuit.State {
	return g.breaker.State()
}
