package document

import (
	"reflect"
	"testing"

	"github.com/cuemby/driftdb/pkg/eventstamp"
)

func st(ms uint64) eventstamp.Stamp { return eventstamp.Stamp{Millis: ms} }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := map[string]any{"name": "Alice", "email": "a@x"}
	doc := Encode("u1", v, st(1), nil)

	decoded := Decode(doc)
	if decoded.ID != "u1" {
		t.Fatalf("ID = %q, want u1", decoded.ID)
	}
	if !reflect.DeepEqual(decoded.Value, v) {
		t.Fatalf("Value = %#v, want %#v", decoded.Value, v)
	}
	if decoded.DeletedAt != nil {
		t.Fatalf("expected nil DeletedAt on a fresh document")
	}
	if !doc.Visible() {
		t.Fatalf("fresh document should be visible")
	}
}

func TestMergeFieldLevelLWW(t *testing.T) {
	base := map[string]any{"name": "Alice", "email": "a@x"}
	a, err := Merge(Encode("u1", base, st(1), nil), Encode("u1", map[string]any{"name": "Alicia"}, st(2), nil))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	b, err := Merge(Encode("u1", base, st(1), nil), Encode("u1", map[string]any{"email": "b@x"}, st(3), nil))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	got := Decode(merged).Value.(map[string]any)
	want := map[string]any{"name": "Alicia", "email": "b@x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merged = %#v, want %#v", got, want)
	}
}

func TestDeleteIsIdempotentWithRespectToStampOrdering(t *testing.T) {
	doc := Encode("u1", map[string]any{"name": "Bob"}, st(1), nil)

	deleted := Delete(doc, st(10))
	if deleted.DeletedAt == nil || deleted.DeletedAt.Millis != 10 {
		t.Fatalf("expected tombstone at 10, got %v", deleted.DeletedAt)
	}

	// A lesser stamp must not move the tombstone backwards.
	redeleted := Delete(deleted, st(5))
	if redeleted.DeletedAt.Millis != 10 {
		t.Fatalf("expected tombstone to remain at 10, got %v", redeleted.DeletedAt.Millis)
	}

	// A greater stamp does advance it.
	redeleted2 := Delete(deleted, st(20))
	if redeleted2.DeletedAt.Millis != 20 {
		t.Fatalf("expected tombstone to advance to 20, got %v", redeleted2.DeletedAt.Millis)
	}
}

func TestDeletionFinalityAgainstOlderUpdate(t *testing.T) {
	// A delete at sD and an unaware update at sU < sD
	// must leave the document invisible after merge, though its data is
	// carried forward.
	deleted := Delete(Encode("u1", map[string]any{"name": "Alice"}, st(1), nil), st(10))
	updated := Encode("u1", map[string]any{"name": "Bob"}, st(5), nil)

	merged, err := Merge(deleted, updated)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if merged.Visible() {
		t.Fatalf("merging an older update into a tombstoned document must not resurrect it")
	}
	if Decode(merged).Value.(map[string]any)["name"] != "Bob" {
		t.Fatalf("tombstoned document should still carry the merged data")
	}
}

func TestMergeDeletedAtIsMaxWithAbsentLosingToPresent(t *testing.T) {
	visible := Encode("u1", map[string]any{"x": 1.0}, st(1), nil)
	tombstoned := Delete(Encode("u1", map[string]any{"x": 1.0}, st(1), nil), st(5))

	merged, err := Merge(visible, tombstoned)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Visible() {
		t.Fatalf("a present tombstone must win over an absent one regardless of operand order")
	}

	mergedReverse, err := Merge(tombstoned, visible)
	if err != nil {
		t.Fatal(err)
	}
	if mergedReverse.Visible() {
		t.Fatalf("merge of DeletedAt must be order independent")
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := Encode("u1", map[string]any{"x": "old"}, st(1), nil)
	b := Encode("u1", map[string]any{"x": "new"}, st(2), nil)

	if _, err := Merge(a, b); err != nil {
		t.Fatal(err)
	}
	if Decode(a).Value.(map[string]any)["x"] != "old" {
		t.Fatalf("Merge must not mutate its first operand")
	}
}
