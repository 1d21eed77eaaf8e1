// Package query implements reactive, incrementally maintained views over a
// Store: a filter, an optional projection, and an optional ordering, kept
// up to date as mutation batches commit rather than recomputed from
// scratch on every read.
package query

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cuemby/driftdb/pkg/log"
	"github.com/cuemby/driftdb/pkg/metrics"
	"github.com/cuemby/driftdb/pkg/store"
)

// nextQueryID hands out the process-local sequence numbers used to build
// each Query's log id. Queries are not exchanged with peers, so a simple
// counter is enough to tell them apart in logs.
var nextQueryID int64

// Config describes a query: Where selects the documents of interest,
// Select projects each matching document to the cached result type U, and
// Order (optional) sorts Results() by the projected value.
//
// Go forbids generic methods on a concrete type, so there is no
// store.Query(cfg) surface; New is the free-function equivalent, taking
// the store it should hydrate from and register against.
type Config[U any] struct {
	Where  func(map[string]any) bool
	Select func(map[string]any) U
	Order  func(a, b U) int
}

// Result is one row of a query's cached results.
type Result[U any] struct {
	ID    string
	Value U
}

// tokenCallback pairs a callback with the token OnChange issued for it, so
// the unsubscribe func OnChange returns can remove by token without losing
// registration order.
type tokenCallback struct {
	token int
	cb    func()
}

// Query is a filtered, projected, incrementally maintained view. Its
// results are kept current by the owning store's Reactor as mutation
// batches commit; reads never recompute from the full collection.
type Query[U any] struct {
	where  func(map[string]any) bool
	project func(map[string]any) U
	order  func(a, b U) int

	mu        sync.Mutex
	results   map[string]U
	callbacks []tokenCallback
	nextToken int
	dirty     bool

	reactor *store.Reactor
	logger  zerolog.Logger
}

// New allocates a query, hydrates it by iterating s.Entries(), and
// registers it with s's Reactor so it receives every subsequent mutation
// batch.
func New[U any](s *store.Store, cfg Config[U]) *Query[U] {
	id := fmt.Sprintf("q%d", atomic.AddInt64(&nextQueryID, 1))
	q := &Query[U]{
		where:   cfg.Where,
		project: cfg.Select,
		order:   cfg.Order,
		results: make(map[string]U),
		reactor: s.Reactor(),
		logger:  log.WithQueryID(id),
	}

	for id, v := range s.Entries() {
		rec, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if q.where(rec) {
			q.results[id] = q.project(rec)
		}
	}

	q.logger.Debug().Int("matched", len(q.results)).Msg("query hydrated")
	q.reactor.Register(q)
	metrics.QueriesActive.Inc()
	return q
}

// OnAdd implements store.Maintainer: newly added documents matching Where
// enter the result set.
func (q *Query[U]) OnAdd(entries []store.Entry) {
	q.mu.Lock()
	for _, e := range entries {
		rec, ok := e.Value.(map[string]any)
		if !ok {
			continue
		}
		if q.where(rec) {
			q.results[e.ID] = q.project(rec)
			q.dirty = true
		}
	}
	cbs := q.drainDirtyLocked()
	q.mu.Unlock()
	runCallbacks(cbs)
}

// OnUpdate implements store.Maintainer, resolving the four in/out
// transitions: a document that newly matches enters, one that no longer
// matches leaves, one that still matches is re-projected, and one that
// still doesn't match is left alone. Any transition except "stays out"
// marks the query dirty, including "stays in" — the projection may have
// changed even though membership didn't.
func (q *Query[U]) OnUpdate(entries []store.Entry) {
	q.mu.Lock()
	for _, e := range entries {
		rec, ok := e.Value.(map[string]any)
		if !ok {
			continue
		}
		matches := q.where(rec)
		_, inResults := q.results[e.ID]

		switch {
		case matches:
			q.results[e.ID] = q.project(rec)
			q.dirty = true
		case inResults:
			delete(q.results, e.ID)
			q.dirty = true
		}
	}
	cbs := q.drainDirtyLocked()
	q.mu.Unlock()
	runCallbacks(cbs)
}

// OnDelete implements store.Maintainer: deleted ids are removed from the
// result set if present.
func (q *Query[U]) OnDelete(ids []string) {
	q.mu.Lock()
	for _, id := range ids {
		if _, ok := q.results[id]; ok {
			delete(q.results, id)
			q.dirty = true
		}
	}
	cbs := q.drainDirtyLocked()
	q.mu.Unlock()
	runCallbacks(cbs)
}

// drainDirtyLocked must be called with q.mu held. It returns a snapshot of
// the registered callbacks, in registration order, if the query is dirty,
// clearing the dirty flag, or nil otherwise. Callbacks are invoked outside
// the lock by the caller.
func (q *Query[U]) drainDirtyLocked() []func() {
	if !q.dirty {
		return nil
	}
	q.dirty = false
	q.logger.Debug().Int("results", len(q.results)).Msg("query recalculated")
	metrics.QueryRecalculationsTotal.Inc()
	cbs := make([]func(), len(q.callbacks))
	for i, tc := range q.callbacks {
		cbs[i] = tc.cb
	}
	return cbs
}

func runCallbacks(cbs []func()) {
	for _, cb := range cbs {
		cb()
	}
}

// Results returns a snapshot of the cached results, sorted by Order on the
// projected value if one was given; otherwise iteration order is
// unspecified.
func (q *Query[U]) Results() []Result[U] {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Result[U], 0, len(q.results))
	for id, v := range q.results {
		out = append(out, Result[U]{ID: id, Value: v})
	}
	if q.order != nil {
		sort.Slice(out, func(i, j int) bool {
			return q.order(out[i].Value, out[j].Value) < 0
		})
	}
	return out
}

// OnChange registers a callback fired once per mutation batch in which
// this query's results changed. Callbacks fire in the order they were
// registered. It returns an unsubscribe function.
func (q *Query[U]) OnChange(cb func()) func() {
	q.mu.Lock()
	token := q.nextToken
	q.nextToken++
	q.callbacks = append(q.callbacks, tokenCallback{token: token, cb: cb})
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		for i, tc := range q.callbacks {
			if tc.token == token {
				q.callbacks = append(q.callbacks[:i:i], q.callbacks[i+1:]...)
				break
			}
		}
		q.mu.Unlock()
	}
}

// Dispose unregisters the query from its store's Reactor and clears its
// callbacks and cached results. A disposed query must not be used again.
func (q *Query[U]) Dispose() {
	q.reactor.Unregister(q)
	metrics.QueriesActive.Dec()

	q.mu.Lock()
	q.callbacks = nil
	q.results = make(map[string]U)
	q.mu.Unlock()
}
