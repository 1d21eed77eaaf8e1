package store

import (
	"github.com/cuemby/driftdb/pkg/clock"
	"github.com/cuemby/driftdb/pkg/document"
)

// Tx is the handle a transaction callback mutates. All writes land in a
// staging map cloned from the Resource Map at Begin time; nothing is
// visible to other callers until the callback returns and the store
// commits, replacing the live map with staging in one step.
type Tx struct {
	staging    map[string]*document.Document
	clock      *clock.Clock
	idFunc     func() string
	rolledBack bool

	added   []Entry
	updated []Entry
	deleted []string
}

// addConfig collects AddOption values.
type addConfig struct {
	id string
}

// AddOption customizes Tx.Add.
type AddOption func(*addConfig)

// WithID overrides the generated id for Tx.Add.
func WithID(id string) AddOption {
	return func(c *addConfig) { c.id = id }
}

func newTx(staging map[string]*document.Document, c *clock.Clock, idFunc func() string) *Tx {
	return &Tx{staging: staging, clock: c, idFunc: idFunc}
}

// Add stages a fresh document, choosing its id from WithID if given or the
// store's id function otherwise, and appends it to the added buffer.
func (tx *Tx) Add(value any, opts ...AddOption) (string, error) {
	cfg := addConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	id := cfg.id
	if id == "" {
		id = tx.idFunc()
	}

	stamp := tx.clock.Now()
	doc := document.Encode(id, value, stamp, nil)
	tx.staging[id] = doc
	tx.added = append(tx.added, Entry{ID: id, Value: document.Decode(doc).Value})
	return id, nil
}

// Update stages a field-level merge of partial into the document at id,
// inserting it if id is not yet staged, and appends the resulting merged
// value to the updated buffer.
func (tx *Tx) Update(id string, partial any) error {
	stamp := tx.clock.Now()
	incoming := document.Encode(id, partial, stamp, nil)

	existing, ok := tx.staging[id]
	if !ok {
		tx.staging[id] = incoming
		tx.updated = append(tx.updated, Entry{ID: id, Value: document.Decode(incoming).Value})
		return nil
	}

	merged, err := document.Merge(existing, incoming)
	if err != nil {
		return err
	}
	tx.staging[id] = merged
	tx.updated = append(tx.updated, Entry{ID: id, Value: document.Decode(merged).Value})
	return nil
}

// Del stages a soft-delete of id. A missing or already-deleted id is a
// no-op and is not appended to the deleted buffer.
func (tx *Tx) Del(id string) error {
	existing, ok := tx.staging[id]
	if !ok || !existing.Visible() {
		return nil
	}
	stamp := tx.clock.Now()
	tx.staging[id] = document.Delete(existing, stamp)
	tx.deleted = append(tx.deleted, id)
	return nil
}

// Get returns the decoded, currently staged value for id, or (nil, false)
// if absent or soft-deleted in staging.
func (tx *Tx) Get(id string) (any, bool) {
	d, ok := tx.staging[id]
	if !ok || !d.Visible() {
		return nil, false
	}
	return document.Decode(d).Value, true
}

// Rollback marks the transaction as rolled back. Writes already issued by
// the callback, and any issued afterwards, still land in staging but are
// discarded instead of committed.
func (tx *Tx) Rollback() {
	tx.rolledBack = true
}

// RolledBack reports whether Rollback has been called on this transaction.
func (tx *Tx) RolledBack() bool {
	return tx.rolledBack
}
