// Package resource implements the Resource Map: the owning container of a
// collection's encoded documents and the mutation primitives that consult
// the Clock for every write. It assumes single-writer access — the Store
// serializes callers with its own lock, the same way a BoltDB transaction
// already serializes writers against its own backing store.
package resource

import (
	"github.com/cuemby/driftdb/pkg/clock"
	"github.com/cuemby/driftdb/pkg/collection"
	"github.com/cuemby/driftdb/pkg/document"
	"github.com/cuemby/driftdb/pkg/eventstamp"
)

// Map owns the encoded documents of one collection plus a reference to the
// clock used to stamp every mutation.
type Map struct {
	documents map[string]*document.Document
	clock     *clock.Clock
}

// New returns an empty Resource Map driven by the given clock.
func New(c *clock.Clock) *Map {
	return &Map{documents: make(map[string]*document.Document), clock: c}
}

// Has reports whether id is present. By default a soft-deleted document
// does not count as present; pass includeDeleted to count tombstones too.
func (m *Map) Has(id string, includeDeleted bool) bool {
	d, ok := m.documents[id]
	if !ok {
		return false
	}
	return includeDeleted || d.Visible()
}

// Get returns the decoded value for id, or (nil, false) if absent or
// soft-deleted.
func (m *Map) Get(id string) (any, bool) {
	d, ok := m.documents[id]
	if !ok || !d.Visible() {
		return nil, false
	}
	return document.Decode(d).Value, true
}

// Entries returns every visible document, decoded, keyed by id. Deleted
// documents are skipped.
func (m *Map) Entries() map[string]any {
	out := make(map[string]any, len(m.documents))
	for id, d := range m.documents {
		if d.Visible() {
			out[id] = document.Decode(d).Value
		}
	}
	return out
}

// Add encodes value at clock.Now() and overwrites any existing entry for id
// without merging — intended for fresh inserts. A repeated Add for the same
// id is last-write-wins by stamp, same as any other leaf write.
func (m *Map) Add(id string, value any) (eventstamp.Stamp, any) {
	stamp := m.clock.Now()
	doc := document.Encode(id, value, stamp, nil)
	m.documents[id] = doc
	return stamp, document.Decode(doc).Value
}

// Update encodes partial at clock.Now() and merges it into the existing
// entry for id (field-level LWW), inserting if id does not yet exist.
// Returns the stamp used and the resulting merged value.
func (m *Map) Update(id string, partial any) (eventstamp.Stamp, any, error) {
	stamp := m.clock.Now()
	incoming := document.Encode(id, partial, stamp, nil)

	existing, ok := m.documents[id]
	if !ok {
		m.documents[id] = incoming
		return stamp, document.Decode(incoming).Value, nil
	}

	merged, err := document.Merge(existing, incoming)
	if err != nil {
		return stamp, nil, err
	}
	m.documents[id] = merged
	return stamp, document.Decode(merged).Value, nil
}

// Delete soft-deletes id at clock.Now() if it exists. A missing id is a
// no-op.
func (m *Map) Delete(id string) (eventstamp.Stamp, bool) {
	existing, ok := m.documents[id]
	if !ok {
		return eventstamp.Stamp{}, false
	}
	stamp := m.clock.Now()
	m.documents[id] = document.Delete(existing, stamp)
	return stamp, true
}

// Snapshot returns a point-in-time Collection: a shallow clone of the
// documents plus the clock's last emitted stamp.
func (m *Map) Snapshot() *collection.Collection {
	docs := make(map[string]*document.Document, len(m.documents))
	for id, d := range m.documents {
		docs[id] = d
	}
	return &collection.Collection{Documents: docs, Eventstamp: m.clock.Latest()}
}

// Merge folds a remote snapshot into this Resource Map via Collection
// merge, replaces the internal document set with the result, and forwards
// the clock to the merged eventstamp. It returns the resulting changes so
// the caller can emit mutation events.
func (m *Map) Merge(snapshot *collection.Collection) (*collection.Changes, error) {
	current := &collection.Collection{Documents: m.documents, Eventstamp: m.clock.Latest()}
	merged, changes, err := collection.Merge(current, snapshot)
	if err != nil {
		return nil, err
	}
	m.documents = merged.Documents
	m.clock.Forward(merged.Eventstamp)
	return changes, nil
}

// CloneMap returns a shallow copy of the internal document map, used to
// seed transaction staging.
func (m *Map) CloneMap() map[string]*document.Document {
	docs := make(map[string]*document.Document, len(m.documents))
	for id, d := range m.documents {
		docs[id] = d
	}
	return docs
}

// ReplaceMap atomically swaps the internal document set, used to commit a
// transaction's staging map.
func (m *Map) ReplaceMap(docs map[string]*document.Document) {
	m.documents = docs
}

// RawDocument returns the stored document for id, including tombstones,
// used by the transaction staging layer to build merged values without
// going through the public Get/Update pair.
func (m *Map) RawDocument(id string) (*document.Document, bool) {
	d, ok := m.documents[id]
	return d, ok
}

// Clock returns the Resource Map's clock, used by the Store's transaction
// staging to stamp writes against the same clock instance.
func (m *Map) Clock() *clock.Clock {
	return m.clock
}
