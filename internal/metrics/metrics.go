package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loyalty"

// Metrics holds the quote service collectors.
type Metrics struct {
	QuoteRequestsTotal     *prometheus.CounterVec
	QuoteRequestDuration   prometheus.Histogram
	DownstreamFailureTotal *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QuoteRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_requests_total",
				Help:      "Quote requests by outcome",
			},
			[]string{"outcome"},
		),
		QuoteRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quotes_request_duration_seconds",
				Help:      "Time spent handling a quote request",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
			},
		),
		DownstreamFailureTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downstream_failures_total",
				Help:      "Failed downstream lookups by downstream",
			},
			[]string{"downstream"},
		),
	}
}

// ObserveQuote records one handled quote request.
func (m *Metrics) ObserveQuote(outcome string, elapsed time.Duration) {
	m.QuoteRequestsTotal.WithLabelValues(outcome).Inc()
	m.QuoteRequestDuration.Observe(elapsed.Seconds())
}

// DownstreamFailure records one failed downstream lookup.
func (m *Metrics) DownstreamFailure(downstream string) {
	m.DownstreamFailureTotal.WithLabelValues(downstream).Inc()
}
