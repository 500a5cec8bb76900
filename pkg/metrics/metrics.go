package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	MetricRewrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multizone_rewrites_total",
			Help: "Total number of requests matched by a rewrite rule",
		},
		[]string{"zone", "kind"},
	)
	MetricFallthrough = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "multizone_fallthrough_total",
			Help: "Total number of requests served by local routes without a rewrite",
		},
	)
	MetricUpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multizone_upstream_errors_total",
			Help: "Total number of forwarded requests that failed at the transport",
		},
		[]string{"zone"},
	)
	MetricRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "multizone_rules",
			Help: "Number of rules in the rewrite table",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers Prometheus metrics with the default registry
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(MetricRewrites)
		prometheus.MustRegister(MetricFallthrough)
		prometheus.MustRegister(MetricUpstreamErrors)
		prometheus.MustRegister(MetricRules)
	})
}
