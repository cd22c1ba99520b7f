package issuer

import (
	"net/url"
	"strings"
	"time"

	dErrors "calibra/pkg/domain-errors"
	"calibra/pkg/platform/circuit"
)

// LedgerTarget selects the shared in-memory ledger.
const LedgerTarget = "memory://ledger"

// Factory turns an issuer target into a guarded Issuer. Targets are either
// LedgerTarget or an http(s) base URL of a token ledger.
type Factory struct {
	Ledger      *InMemoryLedger
	APIKey      string
	Timeout     time.Duration
	Client      HTTPDoer
	BreakerOpts []circuit.Option
}

func (f *Factory) Resolve(target string) (Issuer, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArguments, "issuer target is required")
	}

	var next Issuer
	switch {
	case target == LedgerTarget:
		if f.Ledger == nil {
			f.Ledger = NewInMemoryLedger()
		}
		next = f.Ledger
	default:
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, dErrors.New(dErrors.CodeInvalidArguments, "issuer target must be "+LedgerTarget+" or an http(s) URL")
		}
		next = NewHTTPIssuer(target, f.APIKey, f.Timeout, f.Client)
	}
	return NewGuarded(next, circuit.New("issuer", f.BreakerOpts...)), nil
}
