package store

import "sync"

// Maintainer is implemented by reactive views — the Query Engine's queries
// chief among them — that want incremental updates as each mutation batch
// commits. OnAdd/OnUpdate/OnDelete receive exactly the batches Begin/Merge
// compute, in the same add -> update -> delete order.
type Maintainer interface {
	OnAdd(entries []Entry)
	OnUpdate(entries []Entry)
	OnDelete(ids []string)
}

// Reactor fans out each mutation batch to every registered Maintainer. It
// is wired into the Store as an ordinary Plugin by New, so the built-in
// Query Engine reaches the commit path through exactly the same
// hook-registration route an external plugin would use — there is no
// special-cased internal dispatch.
type Reactor struct {
	mu          sync.Mutex
	maintainers map[Maintainer]struct{}
}

func newReactor() *Reactor {
	return &Reactor{maintainers: make(map[Maintainer]struct{})}
}

// Register adds m to the set of maintainers notified on every mutation
// batch. Safe to call concurrently with commits.
func (r *Reactor) Register(m Maintainer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maintainers[m] = struct{}{}
}

// Unregister removes m; it receives no further batches.
func (r *Reactor) Unregister(m Maintainer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.maintainers, m)
}

func (r *Reactor) snapshot() []Maintainer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Maintainer, 0, len(r.maintainers))
	for m := range r.maintainers {
		out = append(out, m)
	}
	return out
}

// Name implements Plugin.
func (r *Reactor) Name() string { return "reactor" }

// Hooks implements Plugin.
func (r *Reactor) Hooks() Hooks {
	return Hooks{
		OnAdd: func(entries []Entry) {
			for _, m := range r.snapshot() {
				m.OnAdd(entries)
			}
		},
		OnUpdate: func(entries []Entry) {
			for _, m := range r.snapshot() {
				m.OnUpdate(entries)
			}
		},
		OnDelete: func(ids []string) {
			for _, m := range r.snapshot() {
				m.OnDelete(ids)
			}
		},
	}
}

// Methods implements Plugin. The reactor itself attaches no methods; it is
// a dispatch point, not a callable extension.
func (r *Reactor) Methods(Handle) map[string]any { return nil }
