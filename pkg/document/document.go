// Package document implements the encoded document: a single encoded
// record wrapped with an identity and a soft-delete tombstone.
//
// All operations here are pure — they produce new documents and never
// mutate their inputs.
package document

import (
	"github.com/cuemby/driftdb/pkg/eventstamp"
	"github.com/cuemby/driftdb/pkg/value"
)

// Document is an identified encoded record plus an optional tombstone. A
// document is visible iff DeletedAt is nil.
type Document struct {
	ID        string
	Data      *value.Node
	DeletedAt *eventstamp.Stamp
}

// Visible reports whether the document should be returned by reads.
func (d *Document) Visible() bool {
	return d != nil && d.DeletedAt == nil
}

// Encode wraps a user value as a new document at the given id and stamp.
// deletedAt is nil for a fresh, visible document.
func Encode(id string, v any, stamp eventstamp.Stamp, deletedAt *eventstamp.Stamp) *Document {
	return &Document{
		ID:        id,
		Data:      value.Encode(v, stamp),
		DeletedAt: clonePtr(deletedAt),
	}
}

// Decoded is the fully materialized view of a document: its id, its
// decoded user value, and its tombstone (nil if visible).
type Decoded struct {
	ID        string
	Value     any
	DeletedAt *eventstamp.Stamp
}

// Decode materializes a document's record into a plain value.
func Decode(d *Document) Decoded {
	return Decoded{
		ID:        d.ID,
		Value:     value.Decode(d.Data),
		DeletedAt: clonePtr(d.DeletedAt),
	}
}

// Merge combines two documents sharing the same id: their records are
// merged field-by-field, and DeletedAt becomes the max of the two
// tombstones (a present tombstone always outranks an absent one). This
// never resurrects a deleted document — merging data into a tombstoned
// document updates its carried record but its DeletedAt only advances to
// a later deletion, it is never cleared by a merge with a non-deleted
// operand that carries an older effective time than the tombstone.
func Merge(into, from *Document) (*Document, error) {
	mergedData, err := value.Merge(into.Data, from.Data)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:        into.ID,
		Data:      mergedData,
		DeletedAt: maxDeletedAt(into.DeletedAt, from.DeletedAt),
	}, nil
}

// Delete sets (or advances) a document's tombstone. Idempotent with
// respect to stamp ordering: a lesser stamp than the existing tombstone
// leaves the document's DeletedAt unchanged.
func Delete(d *Document, stamp eventstamp.Stamp) *Document {
	deletedAt := stamp
	if d.DeletedAt != nil && !eventstamp.Less(*d.DeletedAt, stamp) {
		deletedAt = *d.DeletedAt
	}
	return &Document{ID: d.ID, Data: d.Data, DeletedAt: &deletedAt}
}

// maxDeletedAt implements "None < Some(any)" plus ordinary Some/Some
// comparison: a present tombstone always wins over an absent one, and
// between two present tombstones the later stamp wins.
func maxDeletedAt(a, b *eventstamp.Stamp) *eventstamp.Stamp {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		s := *b
		return &s
	case b == nil:
		s := *a
		return &s
	default:
		s := eventstamp.Max(*a, *b)
		return &s
	}
}

func clonePtr(s *eventstamp.Stamp) *eventstamp.Stamp {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
