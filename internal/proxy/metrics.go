package proxy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snmpproxy_requests_total",
			Help: "Total ingress datagrams by disposition",
		},
		[]string{"result"},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snmpproxy_cache_entries",
			Help: "Current number of cached responses",
		},
	)

	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snmpproxy_cache_evictions_total",
			Help: "Total cache entries removed by the background evictor",
		},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snmpproxy_backend_latency_seconds",
			Help:    "Backend round-trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

var registerMetricsOnce sync.Once

// RegisterMetrics registers the proxy's collectors with the default
// Prometheus registry. Safe to call more than once.
func RegisterMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(requestsTotal)
		prometheus.MustRegister(cacheEntries)
		prometheus.MustRegister(evictionsTotal)
		prometheus.MustRegister(backendLatency)
	})
}

func recordRequest(result string) {
	requestsTotal.WithLabelValues(result).Inc()
}

func recordBackendLatency(method string, seconds float64) {
	backendLatency.WithLabelValues(method).Observe(seconds)
}
