package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"calibra/internal/certification/models"
	dErrors "calibra/pkg/domain-errors"
)

// Simulator is a loopback oracle for development. It answers each query
// once, after an optional delay, with 1 for accredited subjects and 0 for
// everything else. Until the caller has stored the request, the callback is
// refused as unexpected_request_id; the simulator re-sends it within the
// retry window, as a real oracle router re-sends undelivered callbacks.
type Simulator struct {
	identity   string
	accredited map[string]struct{}
	delay      time.Duration
	retryEvery time.Duration
	retryFor   time.Duration
	logger     *slog.Logger

	mu      sync.RWMutex
	deliver DeliverFunc
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type SimulatorOption func(*Simulator)

func WithDelay(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.delay = d }
}

// WithRedelivery sets how often and for how long a callback refused as
// unexpected_request_id is re-sent.
func WithRedelivery(every, window time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if every > 0 {
			s.retryEvery = every
		}
		if window >= 0 {
			s.retryFor = window
		}
	}
}

func WithSimulatorLogger(logger *slog.Logger) SimulatorOption {
	return func(s *Simulator) { s.logger = logger }
}

func NewSimulator(identity string, accredited []string, opts ...SimulatorOption) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		identity:   identity,
		accredited: make(map[string]struct{}, len(accredited)),
		retryEvery: 10 * time.Millisecond,
		retryFor:   5 * time.Second,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, lab := range accredited {
		if lab = strings.TrimSpace(lab); lab != "" {
			s.accredited[lab] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind sets the callback target. Submissions made before Bind are answered
// with an error.
func (s *Simulator) Bind(fn DeliverFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliver = fn
}

func (s *Simulator) Submit(ctx context.Context, query models.Query) (models.Handle, error) {
	if err := s.ctx.Err(); err != nil {
		return "", NewError(ErrorOutage, "simulator", "simulator stopped", err)
	}
	s.mu.RLock()
	deliver := s.deliver
	s.mu.RUnlock()
	if deliver == nil {
		return "", NewError(ErrorInternal, "simulator", "no callback bound", nil)
	}

	id := uuid.New()
	handle := models.Handle("0x" + hex.EncodeToString(id[:]))
	cb := s.evaluate(handle, query)

	s.wg.Go(func() {
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-s.ctx.Done():
				return
			}
		}
		s.send(deliver, cb)
	})
	return handle, nil
}

func (s *Simulator) send(deliver DeliverFunc, cb models.Callback) {
	deadline := time.Now().Add(s.retryFor)
	for {
		err := deliver(s.ctx, s.identity, cb)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		if !dErrors.HasCode(err, dErrors.CodeUnexpectedRequestID) || time.Now().After(deadline) {
			s.logger.Warn("simulated callback rejected", "handle", cb.Handle, "error", err)
			return
		}
		select {
		case <-time.After(s.retryEvery):
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Simulator) evaluate(handle models.Handle, query models.Query) models.Callback {
	if len(query.Args) == 0 || strings.TrimSpace(query.Args[0]) == "" {
		return models.Callback{Handle: handle, Err: []byte("missing subject")}
	}
	if _, ok := s.accredited[query.Args[0]]; ok {
		return models.Callback{Handle: handle, Response: models.EncodeResult(models.SuccessResult)}
	}
	return models.Callback{Handle: handle, Response: models.EncodeResult(0)}
}

// Close stops pending deliveries and waits for in-flight ones.
func (s *Simulator) Close() {
	s.cancel()
	s.wg.Wait()
}
