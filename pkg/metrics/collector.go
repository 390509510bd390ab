// Package metrics provides the request metrics collector behind the
// /metrics endpoint, plus the Prometheus gatherer backing the promhttp
// exposition handler.
//
// Collector state lives for the process lifetime and resets only on
// restart. The average is computed on read, never stored.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer feeds the promhttp exposition handler. Package-level metrics
// in pkg/cache and pkg/upstream register themselves with the matching
// default registerer via promauto, so everything they record surfaces
// through this gatherer.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Collector accumulates request count and total handler time. Safe for
// concurrent use; increments are atomic.
type Collector struct {
	count   atomic.Int64
	totalNs atomic.Int64
}

// NewCollector creates a zeroed collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record adds one completed request with its wall-clock duration.
func (c *Collector) Record(d time.Duration) {
	c.count.Add(1)
	c.totalNs.Add(int64(d))
}

// Snapshot is the aggregate view served by /metrics. Times are seconds.
type Snapshot struct {
	TotalCount          int64   `json:"total_count"`
	AverageResponseTime float64 `json:"average_response_time"`
	TotalTime           float64 `json:"total_time"`
}

// Snapshot returns the current aggregates. Count and total are read
// independently, so a snapshot taken during heavy concurrent traffic may
// be off by the handful of requests in flight; that slack is fine for an
// operational stats endpoint.
func (c *Collector) Snapshot() Snapshot {
	count := c.count.Load()
	total := time.Duration(c.totalNs.Load()).Seconds()

	var avg float64
	if count > 0 {
		avg = total / float64(count)
	}

	return Snapshot{
		TotalCount:          count,
		AverageResponseTime: avg,
		TotalTime:           total,
	}
}
