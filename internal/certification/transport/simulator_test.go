package transport

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibra/internal/certification/models"
	dErrors "calibra/pkg/domain-errors"
)

type recorder struct {
	mu        sync.Mutex
	callbacks []models.Callback
	callers   []string
	done      chan struct{}
}

func newRecorder(n int) *recorder {
	return &recorder{done: make(chan struct{}, n)}
}

func (r *recorder) deliver(_ context.Context, caller string, cb models.Callback) error {
	r.mu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.callers = append(r.callers, caller)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatal("callback not delivered")
		}
	}
}

func TestSimulator_AccreditedAndRejected(t *testing.T) {
	rec := newRecorder(2)
	sim := NewSimulator("oracle-router", []string{"LAB-001", " "})
	sim.Bind(rec.deliver)
	defer sim.Close()

	accepted, err := sim.Submit(context.Background(), models.Query{Source: "s", Args: []string{"LAB-001"}})
	require.NoError(t, err)
	rejected, err := sim.Submit(context.Background(), models.Query{Source: "s", Args: []string{"LAB-999"}})
	require.NoError(t, err)
	rec.wait(t, 2)

	assert.NotEqual(t, accepted, rejected)
	assert.True(t, strings.HasPrefix(string(accepted), "0x"))

	results := map[models.Handle]uint64{}
	rec.mu.Lock()
	for _, cb := range rec.callbacks {
		v, err := models.DecodeResult(cb.Response)
		require.NoError(t, err)
		results[cb.Handle] = v
	}
	assert.Equal(t, []string{"oracle-router", "oracle-router"}, rec.callers)
	rec.mu.Unlock()

	assert.Equal(t, uint64(1), results[accepted])
	assert.Equal(t, uint64(0), results[rejected])
}

func TestSimulator_MissingSubjectTakesErrorPath(t *testing.T) {
	rec := newRecorder(1)
	sim := NewSimulator("oracle-router", nil)
	sim.Bind(rec.deliver)
	defer sim.Close()

	_, err := sim.Submit(context.Background(), models.Query{Source: "s"})
	require.NoError(t, err)
	rec.wait(t, 1)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.callbacks[0].Response)
	assert.Equal(t, "missing subject", string(rec.callbacks[0].Err))
}

func TestSimulator_UnboundAndClosed(t *testing.T) {
	sim := NewSimulator("oracle-router", nil)
	_, err := sim.Submit(context.Background(), models.Query{Args: []string{"LAB-001"}})
	assert.Equal(t, ErrorInternal, CategoryOf(err))

	sim.Bind(func(context.Context, string, models.Callback) error { return nil })
	sim.Close()
	_, err = sim.Submit(context.Background(), models.Query{Args: []string{"LAB-001"}})
	assert.Equal(t, ErrorOutage, CategoryOf(err))
}

func TestSimulator_CloseCancelsDelayedDelivery(t *testing.T) {
	rec := newRecorder(1)
	sim := NewSimulator("oracle-router", nil, WithDelay(time.Hour))
	sim.Bind(rec.deliver)

	_, err := sim.Submit(context.Background(), models.Query{Args: []string{"LAB-001"}})
	require.NoError(t, err)
	sim.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.callbacks)
}

// A store that records the request after the callback is already on the way
// still receives exactly one applied callback.
func TestSimulator_RedeliversUntilRequestIsStored(t *testing.T) {
	var (
		mu       sync.Mutex
		stored   bool
		refused  int
		accepted int
	)
	applied := make(chan struct{}, 1)
	sim := NewSimulator("oracle-router", []string{"LAB-001"},
		WithDelay(0),
		WithRedelivery(time.Millisecond, 2*time.Second),
	)
	sim.Bind(func(_ context.Context, _ string, _ models.Callback) error {
		mu.Lock()
		defer mu.Unlock()
		if !stored {
			refused++
			return dErrors.New(dErrors.CodeUnexpectedRequestID, "no verification request for handle")
		}
		accepted++
		applied <- struct{}{}
		return nil
	})
	defer sim.Close()

	_, err := sim.Submit(context.Background(), models.Query{Args: []string{"LAB-001"}})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	stored = true
	mu.Unlock()

	select {
	case <-applied:
	case <-time.After(2 * time.Second):
		t.Fatal("callback not redelivered")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, accepted)
	assert.Positive(t, refused)
}

func TestSimulator_OtherRejectionsAreNotRedelivered(t *testing.T) {
	var calls atomic.Int32
	sim := NewSimulator("oracle-router", nil, WithRedelivery(time.Millisecond, time.Second))
	sim.Bind(func(context.Context, string, models.Callback) error {
		calls.Add(1)
		return dErrors.New(dErrors.CodeAlreadyFulfilled, "verification request already fulfilled")
	})

	_, err := sim.Submit(context.Background(), models.Query{Args: []string{"LAB-001"}})
	require.NoError(t, err)
	sim.Close()

	assert.Equal(t, int32(1), calls.Load())
}
