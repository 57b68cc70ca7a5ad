package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation results recorded by StoreMutations.
const (
	ResultApplied  = "applied"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

var (
	// StoreMutations counts store mutations by store, operation and result.
	StoreMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_store_mutations_total",
		Help: "Total number of store mutations by store, operation and result",
	}, []string{"store", "operation", "result"})

	// StorageErrors counts failed backend calls by backend and operation.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_storage_errors_total",
		Help: "Total number of durable storage errors by backend and operation",
	}, []string{"backend", "operation"})

	// StorageLatency records backend call latency.
	StorageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulse_storage_latency_seconds",
		Help:    "Durable storage call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// PostsStored is the number of posts in the content store.
	PostsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_posts_stored",
		Help: "Number of posts currently held by the content store",
	})

	// ChangeNotificationsCoalesced counts change events merged into an
	// already-pending notification.
	ChangeNotificationsCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_change_notifications_coalesced_total",
		Help: "Total number of change notifications merged into a pending one",
	}, []string{"source"})
)

// RecordMutation increments StoreMutations.
func RecordMutation(store, operation, result string) {
	StoreMutations.WithLabelValues(store, operation, result).Inc()
}
