// Package metrics records API traffic with Prometheus collectors. A CLI has no
// scrape endpoint, so the registry is written out in the node-exporter
// textfile format when the process finishes.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements api.Observer
type Collector struct {
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewCollector registers the snooze metrics with reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snooze_api_requests_total",
			Help: "API requests by operation and HTTP status.",
		}, []string{"op", "status_code"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snooze_api_transport_failures_total",
			Help: "API requests that never received a response.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snooze_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		gatherer: reg,
	}

	reg.MustRegister(c.requests, c.failures, c.latency)

	return c
}

func (c *Collector) ObserveRequest(op string, status int, elapsed time.Duration) {
	if status == 0 {
		c.failures.WithLabelValues(op).Inc()
		return
	}
	c.requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WriteTextfile dumps every gathered metric to path, atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.gatherer)
}
