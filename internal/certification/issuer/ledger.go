package issuer

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"calibra/internal/certification/models"
	dErrors "calibra/pkg/domain-errors"
)

// Token is one certificate minted by the in-memory ledger.
type Token struct {
	ID               models.TokenID
	Owner            string
	ContentReference string
}

// InMemoryLedger is a development ledger with sequential token ids.
type InMemoryLedger struct {
	mu     sync.RWMutex
	next   uint64
	tokens map[models.TokenID]Token
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{tokens: make(map[models.TokenID]Token)}
}

func (l *InMemoryLedger) Issue(ctx context.Context, recipient, contentReference string) (models.TokenID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(recipient) == "" {
		return "", dErrors.New(dErrors.CodeInvalidArguments, "recipient is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := models.TokenID(strconv.FormatUint(l.next, 10))
	l.tokens[id] = Token{ID: id, Owner: recipient, ContentReference: contentReference}
	return id, nil
}

// Get returns a minted token.
func (l *InMemoryLedger) Get(id models.TokenID) (Token, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tokens[id]
	return t, ok
}

// Len is the number of minted tokens.
func (l *InMemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tokens)
}
