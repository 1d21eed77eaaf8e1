package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	DocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "driftdb_documents_total",
			Help: "Total number of documents by visibility (visible, deleted)",
		},
		[]string{"visibility"},
	)

	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftdb_transactions_total",
			Help: "Total number of transactions by outcome (committed, rolled_back, failed)",
		},
		[]string{"outcome"},
	)

	TransactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftdb_transaction_duration_seconds",
			Help:    "Time taken to run a transaction callback and commit its result",
			Buckets: prometheus.DefBuckets,
		},
	)

	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftdb_mutations_total",
			Help: "Total number of mutation entries emitted by kind (add, update, delete)",
		},
		[]string{"kind"},
	)

	// Merge metrics
	MergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftdb_merges_total",
			Help: "Total number of collection merges by outcome (ok, structure_mismatch)",
		},
		[]string{"outcome"},
	)

	MergeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftdb_merge_duration_seconds",
			Help:    "Time taken to merge a remote snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Clock metrics. These mirror clock.Stats, a cumulative snapshot read
	// by polling rather than incremented inline, so they are gauges.
	ClockForwardJumpsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftdb_clock_forward_jumps_total",
			Help: "Total number of times the clock adopted a later stamp via Forward",
		},
	)

	ClockTicksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftdb_clock_ticks_total",
			Help: "Total number of eventstamps emitted by Now",
		},
	)

	// Query Engine metrics
	QueriesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftdb_queries_active",
			Help: "Number of queries currently registered with the Reactor",
		},
	)

	QueryRecalculationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftdb_query_recalculations_total",
			Help: "Total number of times a query's results were marked dirty and its callbacks ran",
		},
	)

	// Persistence plugin metrics
	PersistenceFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftdb_persistence_flushes_total",
			Help: "Total number of persistence backend flushes by outcome (ok, error)",
		},
		[]string{"outcome"},
	)

	PersistenceFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftdb_persistence_flush_duration_seconds",
			Help:    "Time taken to flush a snapshot to the persistence backend",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync plugin metrics
	SyncPullsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftdb_sync_pulls_total",
			Help: "Total number of peer pull cycles by outcome (ok, error)",
		},
		[]string{"outcome"},
	)

	SyncPushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftdb_sync_pushes_total",
			Help: "Total number of inbound snapshot pushes served by outcome (ok, error)",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(MergeDuration)
	prometheus.MustRegister(ClockForwardJumpsTotal)
	prometheus.MustRegister(ClockTicksTotal)
	prometheus.MustRegister(QueriesActive)
	prometheus.MustRegister(QueryRecalculationsTotal)
	prometheus.MustRegister(PersistenceFlushesTotal)
	prometheus.MustRegister(PersistenceFlushDuration)
	prometheus.MustRegister(SyncPullsTotal)
	prometheus.MustRegister(SyncPushesTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
