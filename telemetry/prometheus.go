// Package telemetry provides a Prometheus-backed implementation of the
// toolmux.Metrics interface.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/toolmux/toolmux"
)

// PrometheusMetrics records tool call outcomes to a Prometheus registry.
type PrometheusMetrics struct {
	callDuration *prometheus.HistogramVec
	callTotal    *prometheus.CounterVec
}

// NewPrometheusMetrics registers the toolmux collectors with the given
// registerer. A nil registerer uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolmux_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"server", "tool", "status"},
		),
		callTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolmux_calls_total",
				Help: "Total number of tool calls by outcome",
			},
			[]string{"server", "tool", "status"},
		),
	}
}

// ObserveCall records one completed tool call.
func (p *PrometheusMetrics) ObserveCall(m toolmux.CallMetric) {
	status := string(m.Status)
	p.callTotal.WithLabelValues(m.Server, m.Tool, status).Inc()
	p.callDuration.WithLabelValues(m.Server, m.Tool, status).Observe(m.Elapsed.Seconds())
}

var _ toolmux.Metrics = (*PrometheusMetrics)(nil)
