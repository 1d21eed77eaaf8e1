// Package collection implements the unit of synchronization between
// replicas: a full set of encoded documents plus the replica's observed
// maximum eventstamp, and the merge algorithm that combines two such
// snapshots while classifying the resulting per-document changes.
package collection

import (
	"github.com/cuemby/driftdb/pkg/document"
	"github.com/cuemby/driftdb/pkg/eventstamp"
)

// Collection is a full snapshot of one replica's documents, the wire
// format exchanged between replicas and with durable backends.
type Collection struct {
	Documents  map[string]*document.Document
	Eventstamp eventstamp.Stamp
}

// New returns an empty collection seeded at eventstamp.Min.
func New() *Collection {
	return &Collection{Documents: make(map[string]*document.Document)}
}

// Clone returns a shallow copy: a new top-level map pointing at the same
// document values (documents themselves are treated as immutable once
// encoded).
func (c *Collection) Clone() *Collection {
	docs := make(map[string]*document.Document, len(c.Documents))
	for id, d := range c.Documents {
		docs[id] = d
	}
	return &Collection{Documents: docs, Eventstamp: c.Eventstamp}
}

// Changes classifies the effect a merge had on each document id.
type Changes struct {
	Added   map[string]*document.Document
	Updated map[string]*document.Document
	Deleted map[string]struct{}
}

func newChanges() *Changes {
	return &Changes{
		Added:   make(map[string]*document.Document),
		Updated: make(map[string]*document.Document),
		Deleted: make(map[string]struct{}),
	}
}

// sameVersion is a "these are already the same version" early-out using
// structural equality on (latest stamp, deleted_at) — sufficient because
// the encoded record is fully determined by those two fields.
func sameVersion(a, b *document.Document) bool {
	if a == b {
		return true
	}
	if a.Data.Latest != b.Data.Latest {
		return false
	}
	switch {
	case a.DeletedAt == nil && b.DeletedAt == nil:
		return true
	case a.DeletedAt == nil || b.DeletedAt == nil:
		return false
	default:
		return *a.DeletedAt == *b.DeletedAt
	}
}

// Merge combines into and from into a new collection, returning the merged
// result and the set of per-document changes it produced. into and from
// are never mutated.
func Merge(into, from *Collection) (*Collection, *Changes, error) {
	merged := into.Clone()
	changes := newChanges()

	for id, fromDoc := range from.Documents {
		intoDoc, exists := merged.Documents[id]
		if !exists {
			merged.Documents[id] = fromDoc
			if fromDoc.Visible() {
				changes.Added[id] = fromDoc
			}
			continue
		}
		if sameVersion(intoDoc, fromDoc) {
			continue
		}

		mergedDoc, err := document.Merge(intoDoc, fromDoc)
		if err != nil {
			return nil, nil, err
		}
		merged.Documents[id] = mergedDoc

		wasDeleted := !intoDoc.Visible()
		isDeleted := !mergedDoc.Visible()

		switch {
		case !wasDeleted && isDeleted:
			changes.Deleted[id] = struct{}{}
		case !isDeleted:
			changes.Updated[id] = mergedDoc
		default:
			// was deleted, still deleted: no classification entry, even
			// though the tombstoned record's data may have changed.
		}
	}

	merged.Eventstamp = eventstamp.Max(into.Eventstamp, from.Eventstamp)
	return merged, changes, nil
}
