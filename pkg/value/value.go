// Package value implements the encoded record: a tree that shadows a user
// value 1:1 at record boundaries, carrying a per-leaf eventstamp.Stamp so
// that concurrent edits to different fields of the same document can be
// merged independently (field-level last-write-wins).
//
// A "plain record" is any map[string]any. Everything else — slices,
// strings, numbers, bools, nil, and any map whose keys aren't handled as a
// plain record — is encoded as a single opaque leaf, wrapped atomically
// rather than element-wise: arrays are whole-leaf LWW, never merged
// element-by-element.
package value

import "github.com/cuemby/driftdb/pkg/eventstamp"

// Leaf is a single encoded value together with the stamp of the write that
// last set it.
type Leaf struct {
	Value any
	Stamp eventstamp.Stamp
}

// Node is either an interior node (Fields non-nil, Leaf nil) mirroring a
// plain record's keys, or a leaf (Leaf non-nil, Fields nil). Latest is the
// greatest stamp anywhere in the node's subtree, recomputed on every Encode
// or Merge so callers can read it without re-walking the tree.
type Node struct {
	Leaf   *Leaf
	Fields map[string]*Node
	Latest eventstamp.Stamp
}

// IsLeaf reports whether n is a leaf node.
func (n *Node) IsLeaf() bool {
	return n != nil && n.Leaf != nil
}

// IsInterior reports whether n is an interior (record) node.
func (n *Node) IsInterior() bool {
	return n != nil && n.Fields != nil
}

// isPlainRecord reports whether v should be recursed into as an interior
// node rather than wrapped as a leaf. In Go, any map[string]any is a plain
// record; everything else (including other map shapes, which a JSON decode
// never produces) is a leaf.
func isPlainRecord(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Encode wraps a user value at stamp into an encoded Node, recursing into
// plain records and wrapping everything else as a leaf.
func Encode(v any, stamp eventstamp.Stamp) *Node {
	if record, ok := isPlainRecord(v); ok {
		fields := make(map[string]*Node, len(record))
		latest := stamp
		for k, fv := range record {
			child := Encode(fv, stamp)
			fields[k] = child
			latest = eventstamp.Max(latest, child.Latest)
		}
		return &Node{Fields: fields, Latest: latest}
	}
	return &Node{Leaf: &Leaf{Value: v, Stamp: stamp}, Latest: stamp}
}

// Decode is the structural inverse of Encode: every leaf is replaced by its
// carried value, interior nodes recurse.
func Decode(n *Node) any {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return n.Leaf.Value
	}
	out := make(map[string]any, len(n.Fields))
	for k, child := range n.Fields {
		out[k] = Decode(child)
	}
	return out
}
