package collection

import (
	"reflect"
	"testing"

	"github.com/cuemby/driftdb/pkg/document"
	"github.com/cuemby/driftdb/pkg/eventstamp"
)

func st(ms uint64) eventstamp.Stamp { return eventstamp.Stamp{Millis: ms} }

func decodedDocs(c *Collection) map[string]document.Decoded {
	out := make(map[string]document.Decoded, len(c.Documents))
	for id, d := range c.Documents {
		out[id] = document.Decode(d)
	}
	return out
}

func TestMergeIndependentWritesConverge(t *testing.T) {
	// Independent writes to disjoint documents converge with no conflict.
	a := New()
	a.Documents["u1"] = document.Encode("u1", map[string]any{"id": "u1", "name": "Alice"}, st(1), nil)
	a.Eventstamp = st(1)

	b := New()
	b.Documents["u2"] = document.Encode("u2", map[string]any{"id": "u2", "name": "Bob"}, st(2), nil)
	b.Eventstamp = st(2)

	merged, changes, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(merged.Documents) != 2 {
		t.Fatalf("expected 2 documents after merge, got %d", len(merged.Documents))
	}
	if _, ok := changes.Added["u2"]; !ok {
		t.Fatalf("expected u2 to be classified as added")
	}
	if len(changes.Updated) != 0 || len(changes.Deleted) != 0 {
		t.Fatalf("expected no updates/deletes for disjoint inserts, got %+v", changes)
	}
}

func TestMergeFieldLevelLWWAcrossReplicas(t *testing.T) {
	// Concurrent edits to different fields of the same document both survive.
	base := map[string]any{"id": "u1", "name": "Alice", "email": "a@x"}

	aDoc, err := document.Merge(document.Encode("u1", base, st(1), nil), document.Encode("u1", map[string]any{"name": "Alicia"}, st(2), nil))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	a := New()
	a.Documents["u1"] = aDoc
	a.Eventstamp = st(2)

	bDoc, err := document.Merge(document.Encode("u1", base, st(1), nil), document.Encode("u1", map[string]any{"email": "b@x"}, st(3), nil))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	b := New()
	b.Documents["u1"] = bDoc
	b.Eventstamp = st(3)

	merged, _, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	got := document.Decode(merged.Documents["u1"]).Value.(map[string]any)
	want := map[string]any{"id": "u1", "name": "Alicia", "email": "b@x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merged u1 = %#v, want %#v", got, want)
	}
}

func TestMergeDeletionFinality(t *testing.T) {
	// A delete always wins over an older, unaware update.
	c := New()
	deleted := document.Delete(document.Encode("u1", map[string]any{"name": "Alice"}, st(1), nil), st(10))
	c.Documents["u1"] = deleted
	c.Eventstamp = st(10)

	d := New()
	d.Documents["u1"] = document.Encode("u1", map[string]any{"name": "Bob"}, st(5), nil)
	d.Eventstamp = st(5)

	merged, changes, err := Merge(c, d)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if merged.Documents["u1"].Visible() {
		t.Fatalf("u1 must remain invisible after merging an older update into a tombstone")
	}
	if len(changes.Added) != 0 || len(changes.Updated) != 0 || len(changes.Deleted) != 0 {
		t.Fatalf("merging data into an already-deleted doc should produce no classification entry, got %+v", changes)
	}
}

func TestMergeClassifiesNewDeletion(t *testing.T) {
	into := New()
	into.Documents["u1"] = document.Encode("u1", map[string]any{"name": "Alice"}, st(1), nil)
	into.Eventstamp = st(1)

	from := New()
	from.Documents["u1"] = document.Delete(document.Encode("u1", map[string]any{"name": "Alice"}, st(1), nil), st(5))
	from.Eventstamp = st(5)

	_, changes, err := Merge(into, from)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := changes.Deleted["u1"]; !ok {
		t.Fatalf("expected u1 classified as deleted, got %+v", changes)
	}
}

func TestMergeClassifiesUpdateOnVisibleChange(t *testing.T) {
	into := New()
	into.Documents["u1"] = document.Encode("u1", map[string]any{"name": "Alice"}, st(1), nil)
	into.Eventstamp = st(1)

	from := New()
	from.Documents["u1"] = document.Encode("u1", map[string]any{"name": "Alicia"}, st(2), nil)
	from.Eventstamp = st(2)

	_, changes, err := Merge(into, from)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := changes.Updated["u1"]; !ok {
		t.Fatalf("expected u1 classified as updated, got %+v", changes)
	}
}

func TestMergeArrivingAlreadyDeletedIsNotAdded(t *testing.T) {
	into := New()

	from := New()
	from.Documents["u1"] = document.Delete(document.Encode("u1", map[string]any{"name": "Alice"}, st(1), nil), st(2))
	from.Eventstamp = st(2)

	_, changes, err := Merge(into, from)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes.Added) != 0 {
		t.Fatalf("a document arriving already deleted must not be classified as added, got %+v", changes.Added)
	}
}

func threeWayFixtures() (*Collection, *Collection, *Collection) {
	a := New()
	a.Documents["u1"] = document.Encode("u1", map[string]any{"a": "1"}, st(1), nil)
	a.Eventstamp = st(1)

	b := New()
	b.Documents["u1"] = document.Encode("u1", map[string]any{"b": "2"}, st(2), nil)
	b.Eventstamp = st(2)

	c := New()
	c.Documents["u1"] = document.Encode("u1", map[string]any{"c": "3"}, st(3), nil)
	c.Eventstamp = st(3)

	return a, b, c
}

func TestMergeCommutative(t *testing.T) {
	a, b, _ := threeWayFixtures()

	ab, _, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, _, err := Merge(b, a)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(decodedDocs(ab), decodedDocs(ba)) {
		t.Fatalf("merge not commutative on document set: %#v vs %#v", decodedDocs(ab), decodedDocs(ba))
	}
	if ab.Eventstamp != ba.Eventstamp {
		t.Fatalf("merge eventstamp not commutative: %v vs %v", ab.Eventstamp, ba.Eventstamp)
	}
	wantMax := eventstamp.Max(a.Eventstamp, b.Eventstamp)
	if ab.Eventstamp != wantMax {
		t.Fatalf("merged eventstamp should be max(A,B), got %v want %v", ab.Eventstamp, wantMax)
	}
}

func TestMergeAssociative(t *testing.T) {
	a, b, c := threeWayFixtures()

	ab, _, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	abc1, _, err := Merge(ab, c)
	if err != nil {
		t.Fatal(err)
	}

	bc, _, err := Merge(b, c)
	if err != nil {
		t.Fatal(err)
	}
	abc2, _, err := Merge(a, bc)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(decodedDocs(abc1), decodedDocs(abc2)) {
		t.Fatalf("merge not associative: %#v vs %#v", decodedDocs(abc1), decodedDocs(abc2))
	}
}

func TestMergeIdempotent(t *testing.T) {
	a, _, _ := threeWayFixtures()

	merged, _, err := Merge(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decodedDocs(merged), decodedDocs(a)) {
		t.Fatalf("Merge(A, A) should equal A")
	}
	if merged.Eventstamp != a.Eventstamp {
		t.Fatalf("Merge(A, A) eventstamp should equal A's, got %v want %v", merged.Eventstamp, a.Eventstamp)
	}
}

func TestMergeStructuralErrorLeavesIntoUntouched(t *testing.T) {
	into := New()
	into.Documents["u1"] = document.Encode("u1", map[string]any{"addr": map[string]any{"city": "NYC"}}, st(1), nil)
	into.Eventstamp = st(1)

	from := New()
	from.Documents["u1"] = document.Encode("u1", map[string]any{"addr": "123 Main St"}, st(2), nil)
	from.Eventstamp = st(2)

	before := decodedDocs(into)
	_, _, err := Merge(into, from)
	if err == nil {
		t.Fatalf("expected a structural mismatch error")
	}
	if !reflect.DeepEqual(decodedDocs(into), before) {
		t.Fatalf("a failed merge must not mutate its into operand")
	}
}
