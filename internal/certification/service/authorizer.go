package service

import (
	"context"
	"strings"

	dErrors "calibra/pkg/domain-errors"
)

// AllowAll authorizes every authenticated caller.
type AllowAll struct{}

func (AllowAll) AuthorizeInitiate(context.Context, string) error { return nil }

// Allowlist authorizes only the listed callers. An empty list allows all.
type Allowlist struct {
	callers map[string]struct{}
}

func NewAllowlist(callers []string) *Allowlist {
	a := &Allowlist{callers: make(map[string]struct{}, len(callers))}
	for _, c := range callers {
		if c = strings.TrimSpace(c); c != "" {
			a.callers[c] = struct{}{}
		}
	}
	return a
}

func (a *Allowlist) AuthorizeInitiate(_ context.Context, caller string) error {
	if len(a.callers) == 0 {
		return nil
	}
	if _, ok := a.callers[caller]; ok {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller may not request certification")
}
