package value

import (
	"reflect"
	"testing"

	"github.com/cuemby/driftdb/pkg/eventstamp"
)

func stamp(ms uint64) eventstamp.Stamp { return eventstamp.Stamp{Millis: ms} }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []any{
		nil,
		true,
		"hello",
		42.0,
		[]any{1.0, 2.0, "three"},
		map[string]any{
			"name":  "Alice",
			"email": "a@x",
			"tags":  []any{"x", "y"},
			"address": map[string]any{
				"city": "NYC",
				"zip":  "10001",
			},
		},
	}

	for _, v := range cases {
		encoded := Encode(v, stamp(1))
		decoded := Decode(encoded)
		if !reflect.DeepEqual(decoded, v) {
			t.Errorf("round trip mismatch: got %#v, want %#v", decoded, v)
		}
	}
}

func TestArraysAreOpaqueLeaves(t *testing.T) {
	v := []any{1.0, 2.0, 3.0}
	encoded := Encode(v, stamp(5))
	if !encoded.IsLeaf() {
		t.Fatalf("expected array to encode as a single leaf, got interior node")
	}
}

func TestMergeFieldLevelLWW(t *testing.T) {
	a := Encode(map[string]any{"x": "x1"}, stamp(1))
	b := Encode(map[string]any{"y": "y2"}, stamp(2))

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	got := Decode(merged).(map[string]any)
	want := map[string]any{"x": "x1", "y": "y2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge() decoded = %#v, want %#v", got, want)
	}

	// Order independence.
	mergedOther, err := Merge(b, a)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if !reflect.DeepEqual(Decode(mergedOther), got) {
		t.Fatalf("Merge should be order independent on disjoint fields")
	}
}

func TestMergeLeafKeepsGreaterStamp(t *testing.T) {
	older := Encode("old", stamp(1))
	newer := Encode("new", stamp(2))

	merged, err := Merge(older, newer)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if Decode(merged) != "new" {
		t.Fatalf("expected newer value to win, got %v", Decode(merged))
	}

	mergedReverse, err := Merge(newer, older)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if Decode(mergedReverse) != "new" {
		t.Fatalf("expected newer value to win regardless of operand order, got %v", Decode(mergedReverse))
	}
}

func TestMergeLeafTieBreaksTowardsFrom(t *testing.T) {
	a := Encode("a", stamp(9))
	b := Encode("b", stamp(9))

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if Decode(merged) != "b" {
		t.Fatalf("exact tie should prefer the 'from' operand, got %v", Decode(merged))
	}
}

func TestMergeNestedRecords(t *testing.T) {
	a := Encode(map[string]any{
		"profile": map[string]any{"name": "Alice", "age": 30.0},
	}, stamp(1))
	b := Encode(map[string]any{
		"profile": map[string]any{"age": 31.0},
	}, stamp(2))

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	got := Decode(merged).(map[string]any)["profile"].(map[string]any)
	if got["name"] != "Alice" || got["age"] != 31.0 {
		t.Fatalf("nested merge wrong: %#v", got)
	}
}

func TestMergeStructureMismatchReportsPath(t *testing.T) {
	a := Encode(map[string]any{"address": map[string]any{"city": "NYC"}}, stamp(1))
	b := Encode(map[string]any{"address": "123 Main St"}, stamp(2))

	_, err := Merge(a, b)
	if err == nil {
		t.Fatalf("expected StructureMismatch, got nil")
	}
	var mismatch *StructureMismatch
	if !asStructureMismatch(err, &mismatch) {
		t.Fatalf("expected *StructureMismatch, got %T: %v", err, err)
	}
	if mismatch.Path != "address" {
		t.Fatalf("expected path 'address', got %q", mismatch.Path)
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := Encode(map[string]any{"x": 1.0, "nested": map[string]any{"y": 2.0}}, stamp(1))

	merged, err := Merge(a, a)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if !reflect.DeepEqual(Decode(merged), Decode(a)) {
		t.Fatalf("Merge(a, a) should decode identically to a")
	}
}

func TestMergeAssociative(t *testing.T) {
	a := Encode(map[string]any{"a": "1"}, stamp(1))
	b := Encode(map[string]any{"b": "2"}, stamp(2))
	c := Encode(map[string]any{"c": "3"}, stamp(3))

	ab, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	abc1, err := Merge(ab, c)
	if err != nil {
		t.Fatal(err)
	}

	bc, err := Merge(b, c)
	if err != nil {
		t.Fatal(err)
	}
	abc2, err := Merge(a, bc)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(Decode(abc1), Decode(abc2)) {
		t.Fatalf("merge not associative: %#v vs %#v", Decode(abc1), Decode(abc2))
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := Encode(map[string]any{"x": "old"}, stamp(1))
	b := Encode(map[string]any{"x": "new"}, stamp(2))

	if _, err := Merge(a, b); err != nil {
		t.Fatal(err)
	}

	if Decode(a).(map[string]any)["x"] != "old" {
		t.Fatalf("Merge mutated its first operand")
	}
	if Decode(b).(map[string]any)["x"] != "new" {
		t.Fatalf("Merge mutated its second operand")
	}
}

// asStructureMismatch avoids importing errors.As at every call site in this
// file's table of small checks.
func asStructureMismatch(err error, target **StructureMismatch) bool {
	if m, ok := err.(*StructureMismatch); ok {
		*target = m
		return true
	}
	return false
}
