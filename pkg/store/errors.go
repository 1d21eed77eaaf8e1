package store

import (
	"fmt"
	"strings"
)

// PluginConflict is returned by Use when a plugin's method table collides
// with an already-registered name.
type PluginConflict struct {
	Plugin string
	Method string
}

func (e *PluginConflict) Error() string {
	return fmt.Sprintf("store: plugin %q method %q collides with an existing method", e.Plugin, e.Method)
}

// PluginInitFailure wraps an error returned by a plugin's OnInit hook,
// naming the plugin that failed so operators don't have to guess which
// hook in the init chain aborted.
type PluginInitFailure struct {
	Plugin string
	Err    error
}

func (e *PluginInitFailure) Error() string {
	return fmt.Sprintf("store: plugin %q failed to initialize: %v", e.Plugin, e.Err)
}

func (e *PluginInitFailure) Unwrap() error { return e.Err }

// TransactionPanic wraps a value recovered from a panicking transaction
// callback. The staging map is discarded before this error is returned, so
// the store's committed state is left untouched.
type TransactionPanic struct {
	Recovered any
}

func (e *TransactionPanic) Error() string {
	return fmt.Sprintf("store: transaction callback panicked: %v", e.Recovered)
}

// HookPanic wraps a value recovered from a panicking mutation hook. By the
// time this is constructed, the commit it was observing has already taken
// effect — the panic is reported to the caller of Begin/Merge, not turned
// into a rollback.
type HookPanic struct {
	Plugin    string
	Hook      string
	Recovered any
}

func (e *HookPanic) Error() string {
	return fmt.Sprintf("store: plugin %q hook %q panicked: %v", e.Plugin, e.Hook, e.Recovered)
}

// MutationHookPanics aggregates every HookPanic observed while emitting one
// mutation batch. Begin/Merge return this (never nil-but-empty) so a caller
// can range over every failing hook, or use errors.As for a single one.
type MutationHookPanics []*HookPanic

func (e MutationHookPanics) Error() string {
	msgs := make([]string, len(e))
	for i, p := range e {
		msgs[i] = p.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e MutationHookPanics) Unwrap() []error {
	errs := make([]error, len(e))
	for i, p := range e {
		errs[i] = p
	}
	return errs
}
