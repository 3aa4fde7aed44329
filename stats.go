package arbor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once in the default registry, matching the
// package-var promauto pattern used throughout the pack for long-lived
// process counters.
var (
	asyncEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "async",
		Name:      "enqueued_total",
		Help:      "Total log records accepted onto the async writer queue.",
	})
	asyncDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "async",
		Name:      "dropped_total",
		Help:      "Total log records dropped by the async writer queue, by strategy.",
	}, []string{"strategy"})
	asyncFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "async",
		Name:      "flushed_total",
		Help:      "Total log records written out by the async writer worker.",
	})
	asyncQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arbor",
		Subsystem: "async",
		Name:      "queue_depth",
		Help:      "Current number of records waiting in the async writer queue.",
	})
	asyncWorkerRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "async",
		Name:      "worker_restarts_total",
		Help:      "Total times the async writer worker goroutine was restarted after a panic.",
	})
)

// AsyncStats is a point-in-time snapshot of async writer health, exposed
// alongside (not instead of) the prometheus metrics above for callers
// that want an in-process read without scraping /metrics.
type AsyncStats struct {
	QueueDepth     int
	QueueCapacity  int
	Enqueued       uint64
	Dropped        uint64
	Flushed        uint64
	WorkerRestarts uint64
	Running        bool
}
