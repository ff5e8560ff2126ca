package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequestDuration is shared by the httpserver middleware, keyed by
// method, route pattern and status code.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "llmgate",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

var CacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgate",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Total cache lookups by tier and outcome.",
	},
	[]string{"tier", "outcome"},
)

var RateLimitDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgate",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Total rate limit decisions by window and outcome.",
	},
	[]string{"window", "outcome"},
)

var ProviderRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgate",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Total upstream provider requests by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

var ProviderLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "llmgate",
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Upstream provider call latency in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	},
	[]string{"provider"},
)

var UsageCostTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgate",
		Subsystem: "usage",
		Name:      "cost_usd_micros_total",
		Help:      "Total recorded cost in USD micros by tenant.",
	},
	[]string{"tenant"},
)

var AlertsFiredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgate",
		Subsystem: "alerts",
		Name:      "fired_total",
		Help:      "Total alert notifications fired by threshold kind.",
	},
	[]string{"kind"},
)

var NotificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgate",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Total notification dispatch attempts by channel and outcome.",
	},
	[]string{"channel", "outcome"},
)

// All returns every llmgate-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		CacheLookupsTotal,
		RateLimitDecisionsTotal,
		ProviderRequestsTotal,
		ProviderLatency,
		UsageCostTotal,
		AlertsFiredTotal,
		NotificationsSentTotal,
	}
}

// NewMetricsRegistry builds a Prometheus registry with the Go/process
// collectors plus every llmgate collector.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
