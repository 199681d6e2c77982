// Package prometheus provides the Prometheus-backed implementations of
// the pkg/metrics interfaces. Every constructor returns nil until
// metrics.InitRegistry has been called.
package prometheus

import (
	"strconv"
	"time"

	"github.com/coredock/coredock/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// NewHTTPMetrics creates the REST-surface metrics, nil when collection is
// disabled.
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &httpMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coredock_http_requests_total",
				Help: "Total HTTP requests by method, route, and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "coredock_http_request_duration_seconds",
				Help: "HTTP request duration in seconds",
				// Uploads and tool calls sit far to the right of typical
				// API latencies
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 300},
			},
			[]string{"method", "route"},
		),
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coredock_http_requests_in_flight",
				Help: "HTTP requests currently being served",
			},
			[]string{"method", "route"},
		),
	}
}

func (m *httpMetrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *httpMetrics) RecordRequestStart(method, route string) {
	m.inFlight.WithLabelValues(method, route).Inc()
}

func (m *httpMetrics) RecordRequestEnd(method, route string) {
	m.inFlight.WithLabelValues(method, route).Dec()
}
