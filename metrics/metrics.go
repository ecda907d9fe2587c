// Package metrics is the connector's Prometheus instrumentation (SPEC_FULL.md
// §9): counters and histograms over task terminal events, checksum
// mismatches, lock waits, and pool queue depth. Purely observational — no
// component consults a metric to decide anything.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector the connector reports into. A nil
// *Registry is valid and every method becomes a no-op, so instrumentation
// can be wired in unconditionally without a feature flag at every call site.
type Registry struct {
	transfersStarted   *prometheus.CounterVec
	transfersSucceeded *prometheus.CounterVec
	transfersFailed    *prometheus.CounterVec
	transfersCorrupted *prometheus.CounterVec
	bytesTransferred   *prometheus.CounterVec
	checksumMismatches *prometheus.CounterVec
	lockWaitSeconds    prometheus.Histogram
	poolQueueDepth     prometheus.Gauge
}

// Kind labels a task runner for the by-kind counters (spec.md §4.7 task
// names).
type Kind string

const (
	KindGet  Kind = "get"
	KindPut  Kind = "put"
	KindPeek Kind = "peek"
)

// New builds a Registry and registers every collector against reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global default
// registry; passing prometheus.DefaultRegisterer is the production wiring.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		transfersStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_transfers_started_total",
			Help: "Transfer tasks started, by kind.",
		}, []string{"kind"}),
		transfersSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_transfers_succeeded_total",
			Help: "Transfer tasks that reached SUCCEEDED, by kind.",
		}, []string{"kind"}),
		transfersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_transfers_failed_total",
			Help: "Transfer tasks that reached FAILED, by kind and error kind.",
		}, []string{"kind", "error_kind"}),
		transfersCorrupted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_transfers_corrupted_total",
			Help: "CORRUPTED events emitted, by kind.",
		}, []string{"kind"}),
		bytesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_bytes_transferred_total",
			Help: "Bytes moved across the wire, by kind.",
		}, []string{"kind"}),
		checksumMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_checksum_mismatches_total",
			Help: "Checksum mismatches observed, by algorithm.",
		}, []string{"algorithm"}),
		lockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "connector_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a sidecar lock file.",
			Buckets: prometheus.DefBuckets,
		}),
		poolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connector_pool_queue_depth",
			Help: "Tasks currently queued in the worker pool.",
		}),
	}
	reg.MustRegister(
		r.transfersStarted, r.transfersSucceeded, r.transfersFailed,
		r.transfersCorrupted, r.bytesTransferred, r.checksumMismatches,
		r.lockWaitSeconds, r.poolQueueDepth,
	)
	return r
}

func (r *Registry) Started(kind Kind) {
	if r == nil {
		return
	}
	r.transfersStarted.WithLabelValues(string(kind)).Inc()
}

func (r *Registry) Succeeded(kind Kind) {
	if r == nil {
		return
	}
	r.transfersSucceeded.WithLabelValues(string(kind)).Inc()
}

func (r *Registry) Failed(kind Kind, errorKind string) {
	if r == nil {
		return
	}
	r.transfersFailed.WithLabelValues(string(kind), errorKind).Inc()
}

func (r *Registry) Corrupted(kind Kind) {
	if r == nil {
		return
	}
	r.transfersCorrupted.WithLabelValues(string(kind)).Inc()
}

func (r *Registry) BytesTransferred(kind Kind, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.bytesTransferred.WithLabelValues(string(kind)).Add(float64(n))
}

func (r *Registry) ChecksumMismatch(algorithm string) {
	if r == nil {
		return
	}
	r.checksumMismatches.WithLabelValues(algorithm).Inc()
}

func (r *Registry) ObserveLockWait(seconds float64) {
	if r == nil {
		return
	}
	r.lockWaitSeconds.Observe(seconds)
}

func (r *Registry) SetPoolQueueDepth(n int) {
	if r == nil {
		return
	}
	r.poolQueueDepth.Set(float64(n))
}
