package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	latency *prometheus.HistogramVec
}

// NewMetrics registers the HTTP latency histogram on reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		latency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calibra_http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Observe(method, route string, status int, seconds float64) {
	m.latency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
