/*
Package metrics provides Prometheus metrics collection and exposition for
driftdb. It defines and registers every metric using the Prometheus client
library, giving visibility into transaction throughput, merge activity,
query recalculation, and clock behavior. Metrics are exposed over HTTP for
scraping by a Prometheus server.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Categories               │          │
	│  │                                              │          │
	│  │  Store: transactions, mutations, documents  │          │
	│  │  Merge: merge counts, merge duration         │          │
	│  │  Clock: tick and forward-jump counters       │          │
	│  │  Query: active queries, recalculations       │          │
	│  │  Persistence / Sync: flush and pull/push     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint               │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Store metrics:

driftdb_documents_total{visibility}:
  - Type: Gauge
  - Description: visible and deleted (tombstoned) document counts
  - Example: driftdb_documents_total{visibility="visible"} 42

driftdb_transactions_total{outcome}:
  - Type: Counter
  - Description: committed, rolled_back, failed transactions
  - Example: driftdb_transactions_total{outcome="committed"} 1204

driftdb_transaction_duration_seconds:
  - Type: Histogram
  - Description: time spent inside Store.Begin, staging through commit

driftdb_mutations_total{kind}:
  - Type: Counter
  - Description: mutation entries emitted, by kind (add, update, delete)

Merge metrics:

driftdb_merges_total{outcome}:
  - Type: Counter
  - Description: collection merges by outcome (ok, structure_mismatch)

driftdb_merge_duration_seconds:
  - Type: Histogram
  - Description: time spent merging a remote snapshot

Clock metrics (mirrors pkg/clock.Stats, sampled by Collector):

driftdb_clock_ticks_total:
  - Type: Gauge
  - Description: eventstamps emitted by Clock.Now so far

driftdb_clock_forward_jumps_total:
  - Type: Gauge
  - Description: times Clock.Forward adopted a later stamp

Query Engine metrics:

driftdb_queries_active:
  - Type: Gauge
  - Description: queries currently registered with a store's Reactor

driftdb_query_recalculations_total:
  - Type: Counter
  - Description: times a query's result set changed and its callbacks ran

Persistence and sync plugin metrics:

driftdb_persistence_flushes_total{outcome}, driftdb_persistence_flush_duration_seconds:
  - boltsnap flush outcomes and timing

driftdb_sync_pulls_total{outcome}, driftdb_sync_pushes_total{outcome}:
  - httpsnap client pull and server push outcomes

# Usage

	import "github.com/cuemby/driftdb/pkg/metrics"

	metrics.TransactionsTotal.WithLabelValues("committed").Inc()
	metrics.DocumentsTotal.WithLabelValues("visible").Set(42)

	timer := metrics.NewTimer()
	// ... run a transaction ...
	timer.ObserveDuration(metrics.TransactionDuration)

Collector polls a Store's document counts and clock stats on an interval,
for metrics that aren't naturally updated inline by the code that changes
them:

	c := metrics.NewCollector(s)
	c.Start()
	defer c.Stop()

Complete example:

	package main

	import (
		"net/http"

		"github.com/cuemby/driftdb/pkg/metrics"
		"github.com/cuemby/driftdb/pkg/store"
	)

	func main() {
		s := store.New()
		c := metrics.NewCollector(s)
		c.Start()
		defer c.Stop()

		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

# Integration Points

  - pkg/store: transaction, mutation, merge, and document metrics
  - pkg/query: active query count and recalculation count
  - pkg/persistence/boltsnap: flush outcome/duration and ReportSubsystem("persistence", ...)
  - pkg/sync/httpsnap: pull/push outcome counters and ReportSubsystem("sync", ...)
  - cmd/driftd: reports ReportSubsystem("store", ...) on startup and wires
    Collector and the /metrics, /health, /ready, /live handlers into the
    daemon's HTTP server

# Design Patterns

Package init registration: every metric is registered once in init() via
MustRegister, so they exist before any handler is wired up.

Timer pattern: NewTimer() at the start of an operation, ObserveDuration or
ObserveDurationVec at the end.

Label discipline: labels are bounded enums (outcome, kind, visibility),
never document or query identifiers.

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
