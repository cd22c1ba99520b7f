// Package metrics holds Prometheus metrics for the certification lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"calibra/internal/certification/models"
)

type Metrics struct {
	RequestsInitiated prometheus.Counter
	InitiateRejected  *prometheus.CounterVec
	Callbacks         *prometheus.CounterVec
	CallbackRejected  *prometheus.CounterVec
	IssuanceFailures  prometheus.Counter
	IssuanceDuration  prometheus.Histogram
	PendingRequests   prometheus.Gauge
	LockWait          prometheus.Histogram
}

// New registers the metrics on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestsInitiated: f.NewCounter(prometheus.CounterOpts{
			Name: "calibra_requests_initiated_total",
			Help: "Verification requests recorded as pending",
		}),
		InitiateRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calibra_initiate_rejected_total",
			Help: "Initiate calls rejected before submission, by error code",
		}, []string{"code"}),
		Callbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calibra_callbacks_total",
			Help: "Accepted oracle callbacks by outcome",
		}, []string{"outcome"}),
		CallbackRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calibra_callbacks_rejected_total",
			Help: "Oracle callbacks rejected without a state change, by error code",
		}, []string{"code"}),
		IssuanceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "calibra_issuance_failures_total",
			Help: "Issuance delegate calls that failed after a successful verification",
		}),
		IssuanceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "calibra_issuance_duration_seconds",
			Help:    "Time spent in the issuance delegate",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PendingRequests: f.NewGauge(prometheus.GaugeOpts{
			Name: "calibra_pending_requests",
			Help: "Requests waiting for their oracle callback",
		}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "calibra_handle_lock_wait_seconds",
			Help:    "Time spent waiting for the per-handle lock",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
	}
}

func (m *Metrics) IncInitiated() {
	m.RequestsInitiated.Inc()
	m.PendingRequests.Inc()
}

func (m *Metrics) IncInitiateRejected(code string) {
	m.InitiateRejected.WithLabelValues(code).Inc()
}

// ObserveCallback counts an accepted callback and moves it out of pending.
func (m *Metrics) ObserveCallback(outcome models.Outcome) {
	m.Callbacks.WithLabelValues(string(outcome)).Inc()
	m.PendingRequests.Dec()
	if outcome == models.OutcomeIssuanceFailed {
		m.IssuanceFailures.Inc()
	}
}

func (m *Metrics) IncCallbackRejected(code string) {
	m.CallbackRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveIssuance(d time.Duration) {
	m.IssuanceDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	m.LockWait.Observe(d.Seconds())
}

// SetPending seeds the gauge from the store at startup.
func (m *Metrics) SetPending(n int64) {
	m.PendingRequests.Set(float64(n))
}
