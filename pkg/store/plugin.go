package store

import (
	"github.com/cuemby/driftdb/pkg/collection"
	"github.com/cuemby/driftdb/pkg/eventstamp"
)

// Entry is one changed document as handed to a mutation hook: its id and
// its decoded, post-mutation value.
type Entry struct {
	ID    string
	Value any
}

// Hooks is the set of lifecycle and mutation callbacks a Plugin registers.
// Any field left nil is simply never called.
type Hooks struct {
	// OnInit runs once, in registration order, when Store.Init is called.
	// A returned error aborts initialization and is wrapped as
	// PluginInitFailure.
	OnInit func(Handle) error
	// OnDispose runs once, in reverse registration order, when
	// Store.Dispose is called.
	OnDispose func(Handle) error
	// OnAdd, OnUpdate and OnDelete run synchronously on the commit path,
	// after the Resource Map has already been replaced. They are
	// observers, not gatekeepers: a panic here never rolls back the
	// commit, but it is not discarded either — it is collected and
	// surfaced to the caller of Begin/Merge as MutationHookPanics once
	// every hook in the batch has run.
	OnAdd    func([]Entry)
	OnUpdate func([]Entry)
	OnDelete func([]string)
}

// Plugin extends the Store with lifecycle hooks and, optionally, extra
// methods attached to the store's dynamic method table. Go has no runtime
// property attachment, so Methods returns a name -> function map that Use
// copies in; callers recover static typing with the generic Method helper.
type Plugin interface {
	Name() string
	Hooks() Hooks
	Methods(Handle) map[string]any
}

// Handle is the restricted view of a Store given to plugins: it can read
// decoded values and the current snapshot, merge in remote snapshots, and
// open transactions, but it never reaches into encoded internals.
type Handle interface {
	Has(id string) bool
	Get(id string) (any, bool)
	Entries() map[string]any
	Collection() *collection.Collection
	Merge(snapshot *collection.Collection) (*collection.Changes, error)
	Begin(fn func(*Tx) error, opts ...TxOption) error
	Latest() eventstamp.Stamp
}
