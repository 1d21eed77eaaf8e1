// Package store implements the transactional facade over the Resource Map:
// staging, commit/rollback, mutation event emission, and the Plugin Host
// that lets external code observe and extend the store.
package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/driftdb/pkg/clock"
	"github.com/cuemby/driftdb/pkg/collection"
	"github.com/cuemby/driftdb/pkg/document"
	"github.com/cuemby/driftdb/pkg/eventstamp"
	"github.com/cuemby/driftdb/pkg/log"
	"github.com/cuemby/driftdb/pkg/metrics"
	"github.com/cuemby/driftdb/pkg/resource"
)

// Store is the only thing callers mutate. A single coarse mutex serializes
// Begin, Merge and Use: the core merge/encode/decode/commit path never
// suspends, so the lock is held only for the duration of in-memory work.
type Store struct {
	mu sync.Mutex

	res   *resource.Map
	clock *clock.Clock

	hooks   []registeredPlugin
	methods map[string]any

	reactor *Reactor

	idFunc func() string
	logger zerolog.Logger
}

type registeredPlugin struct {
	name  string
	hooks Hooks
}

// Option customizes a new Store.
type Option func(*Store)

// WithIDFunc overrides the default (uuid.NewString) id generator used by
// Tx.Add when no WithID option is given.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.idFunc = fn }
}

// WithLogger overrides the store's logger. Defaults to a component logger
// derived from the package-level log.Logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns an empty Store with its own Clock and Resource Map.
func New(opts ...Option) *Store {
	c := clock.New()
	s := &Store{
		res:     resource.New(c),
		clock:   c,
		methods: make(map[string]any),
		idFunc:  uuid.NewString,
		logger:  log.WithComponent("store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.reactor = newReactor()
	// The reactor can never collide with a later plugin's method names
	// (it attaches none), so this registration never fails.
	_ = s.Use(s.reactor)

	return s
}

// Reactor returns the store's built-in mutation dispatcher. The Query
// Engine (pkg/query) registers its queries here; external code normally
// has no reason to touch it directly.
func (s *Store) Reactor() *Reactor {
	return s.reactor
}

// Has reports whether id is present and visible.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res.Has(id, false)
}

// Get returns the decoded value for id, or (nil, false) if absent or
// deleted.
func (s *Store) Get(id string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res.Get(id)
}

// Entries returns every visible document, decoded, keyed by id.
func (s *Store) Entries() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res.Entries()
}

// Collection returns a snapshot of the store's current state, the unit
// exchanged with peers and durable backends.
func (s *Store) Collection() *collection.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res.Snapshot()
}

// Latest returns the store's last emitted or forwarded eventstamp without
// advancing it.
func (s *Store) Latest() eventstamp.Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Latest()
}

// Clock returns the store's underlying Clock, so callers such as
// pkg/metrics can observe its Stats without reaching into Store internals.
func (s *Store) Clock() *clock.Clock {
	return s.clock
}

// Add is a one-operation transaction wrapping Tx.Add.
func (s *Store) Add(value any, opts ...AddOption) (string, error) {
	var id string
	err := s.Begin(func(tx *Tx) error {
		added, err := tx.Add(value, opts...)
		id = added
		return err
	})
	return id, err
}

// Update is a one-operation transaction wrapping Tx.Update.
func (s *Store) Update(id string, partial any) error {
	return s.Begin(func(tx *Tx) error {
		return tx.Update(id, partial)
	})
}

// Del is a one-operation transaction wrapping Tx.Del.
func (s *Store) Del(id string) error {
	return s.Begin(func(tx *Tx) error {
		return tx.Del(id)
	})
}

// txConfig collects TxOption values.
type txConfig struct {
	silent bool
}

// TxOption customizes Store.Begin.
type TxOption func(*txConfig)

// WithSilent suppresses mutation event emission for this transaction.
func WithSilent(silent bool) TxOption {
	return func(c *txConfig) { c.silent = silent }
}

// Begin runs fn against a fresh staging copy of the Resource Map. If fn
// returns nil and the transaction was not rolled back, staging is
// committed atomically and, unless silent, mutation events fire in the
// order onAdd -> onUpdate -> onDelete, each with its whole batch. Empty
// sub-batches do not fire. If fn returns an error, or panics, staging is
// discarded and the store's committed state is untouched; a panic is
// recovered and returned as a *TransactionPanic error after staging is
// discarded. A hook that panics while those events fire is a different
// story: the commit has already taken effect by then, so Begin returns a
// MutationHookPanics error describing the failing hook(s) instead of discarding
// anything.
func (s *Store) Begin(fn func(*Tx) error, opts ...TxOption) (err error) {
	cfg := txConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	outcome := "committed"
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.TransactionDuration)
		metrics.TransactionsTotal.WithLabelValues(outcome).Inc()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	staging := s.res.CloneMap()
	tx := newTx(staging, s.clock, s.idFunc)

	defer func() {
		if r := recover(); r != nil {
			err = &TransactionPanic{Recovered: r}
			outcome = "failed"
		}
	}()

	if cbErr := fn(tx); cbErr != nil {
		outcome = "failed"
		return cbErr
	}
	if tx.RolledBack() {
		outcome = "rolled_back"
		return nil
	}

	s.res.ReplaceMap(tx.staging)

	if cfg.silent {
		return nil
	}
	return s.emit(tx.added, tx.updated, tx.deleted)
}

// Merge folds a remote snapshot into the store via Collection merge and
// always emits mutation events computed from the resulting changes,
// regardless of any silent option — sync traffic is never silent. As with
// Begin, a hook panicking during emission surfaces as a MutationHookPanics
// error even though the merge itself has already committed.
func (s *Store) Merge(snapshot *collection.Collection) (*collection.Changes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MergeDuration)

	changes, err := s.res.Merge(snapshot)
	if err != nil {
		metrics.MergesTotal.WithLabelValues("structure_mismatch").Inc()
		return nil, err
	}
	metrics.MergesTotal.WithLabelValues("ok").Inc()

	added := make([]Entry, 0, len(changes.Added))
	for id, d := range changes.Added {
		added = append(added, Entry{ID: id, Value: document.Decode(d).Value})
	}
	updated := make([]Entry, 0, len(changes.Updated))
	for id, d := range changes.Updated {
		updated = append(updated, Entry{ID: id, Value: document.Decode(d).Value})
	}
	deleted := make([]string, 0, len(changes.Deleted))
	for id := range changes.Deleted {
		deleted = append(deleted, id)
	}

	log.WithStamp(s.clock.Latest().String()).Debug().
		Int("added", len(added)).Int("updated", len(updated)).Int("deleted", len(deleted)).
		Msg("snapshot merged")

	if hookErr := s.emit(added, updated, deleted); hookErr != nil {
		return changes, hookErr
	}
	return changes, nil
}

// emit fires onAdd, onUpdate, onDelete in that order across every
// registered plugin hook set, skipping empty batches. Hooks are observers,
// not gatekeepers — a panic inside one never rolls back the commit that
// already happened — but it is not swallowed either: every panic observed
// in this batch is logged and collected, and returned to the caller of
// Begin/Merge as MutationHookPanics once every hook has had a chance to
// run.
func (s *Store) emit(added, updated []Entry, deleted []string) error {
	var failures MutationHookPanics

	if len(added) > 0 {
		metrics.MutationsTotal.WithLabelValues("add").Add(float64(len(added)))
	}
	if len(updated) > 0 {
		metrics.MutationsTotal.WithLabelValues("update").Add(float64(len(updated)))
	}
	if len(deleted) > 0 {
		metrics.MutationsTotal.WithLabelValues("delete").Add(float64(len(deleted)))
	}

	if len(added) > 0 {
		for _, p := range s.hooks {
			if p.hooks.OnAdd != nil {
				if err := s.runHook(p.name, "onAdd", func() { p.hooks.OnAdd(added) }); err != nil {
					failures = append(failures, err)
				}
			}
		}
	}
	if len(updated) > 0 {
		for _, p := range s.hooks {
			if p.hooks.OnUpdate != nil {
				if err := s.runHook(p.name, "onUpdate", func() { p.hooks.OnUpdate(updated) }); err != nil {
					failures = append(failures, err)
				}
			}
		}
	}
	if len(deleted) > 0 {
		for _, p := range s.hooks {
			if p.hooks.OnDelete != nil {
				if err := s.runHook(p.name, "onDelete", func() { p.hooks.OnDelete(deleted) }); err != nil {
					failures = append(failures, err)
				}
			}
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return failures
}

// runHook invokes fn, recovering and reporting a panic rather than letting
// it unwind into emit's caller mid-batch — the remaining hooks in the
// batch must still run.
func (s *Store) runHook(plugin, hook string, fn func()) (hookErr *HookPanic) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("plugin", plugin).
				Str("hook", hook).
				Interface("recovered", r).
				Msg("mutation hook panicked; commit already took effect")
			hookErr = &HookPanic{Plugin: plugin, Hook: hook, Recovered: r}
		}
	}()
	fn()
	return nil
}

// Use registers a plugin's hooks and copies its methods into the store's
// dynamic method table. A method name an earlier plugin already attached
// fails immediately with *PluginConflict and the plugin is not registered
// at all. The table holds only plugin-attached methods, so the Store's own
// Go methods never collide with a plugin's names.
func (s *Store) Use(p Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	methods := p.Methods(s)
	for name := range methods {
		if _, exists := s.methods[name]; exists {
			return &PluginConflict{Plugin: p.Name(), Method: name}
		}
	}
	for name, fn := range methods {
		s.methods[name] = fn
	}
	s.hooks = append(s.hooks, registeredPlugin{name: p.Name(), hooks: p.Hooks()})
	return nil
}

// Init runs every registered plugin's OnInit hook in registration order,
// stopping at (and returning, wrapped as *PluginInitFailure) the first
// error.
func (s *Store) Init() error {
	s.mu.Lock()
	hooks := append([]registeredPlugin(nil), s.hooks...)
	s.mu.Unlock()

	for _, p := range hooks {
		if p.hooks.OnInit == nil {
			continue
		}
		if err := p.hooks.OnInit(s); err != nil {
			return &PluginInitFailure{Plugin: p.name, Err: err}
		}
	}
	return nil
}

// Dispose runs every registered plugin's OnDispose hook in reverse
// registration order, then clears the hook list. Errors from individual
// plugins are logged, not propagated, so one slow-to-close plugin never
// prevents the others from disposing.
func (s *Store) Dispose() {
	s.mu.Lock()
	hooks := append([]registeredPlugin(nil), s.hooks...)
	s.hooks = nil
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		p := hooks[i]
		if p.hooks.OnDispose == nil {
			continue
		}
		if err := p.hooks.OnDispose(s); err != nil {
			s.logger.Error().Str("plugin", p.name).Err(err).Msg("plugin dispose failed")
		}
	}
}

// Method looks up a plugin-attached method by name and asserts it to F,
// recovering static typing at the call site for what is, underneath,
// store.methods[name] any.
func Method[F any](s *Store, name string) (F, bool) {
	s.mu.Lock()
	raw, ok := s.methods[name]
	s.mu.Unlock()

	var zero F
	if !ok {
		return zero, false
	}
	fn, ok := raw.(F)
	if !ok {
		return zero, false
	}
	return fn, true
}
