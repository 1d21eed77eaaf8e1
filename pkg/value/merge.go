package value

import "github.com/cuemby/driftdb/pkg/eventstamp"

// Merge combines two encoded trees at the same logical path, applying
// field-level last-write-wins at every leaf. It returns the merged tree,
// whose Latest is the greatest stamp observed anywhere in it (bubbled up
// from surviving leaves). A StructureMismatch is returned, and only that error, when one
// operand is an interior node and the other a leaf at the same path.
func Merge(into, from *Node) (*Node, error) {
	merged, err := mergeAt(into, from, "")
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func mergeAt(into, from *Node, path string) (*Node, error) {
	switch {
	case into == nil:
		return cloneNode(from), nil
	case from == nil:
		return cloneNode(into), nil
	case into.IsInterior() && from.IsInterior():
		return mergeInterior(into, from, path)
	case into.IsLeaf() && from.IsLeaf():
		return mergeLeaf(into, from), nil
	default:
		return nil, &StructureMismatch{Path: path}
	}
}

func mergeInterior(into, from *Node, path string) (*Node, error) {
	fields := make(map[string]*Node, len(into.Fields)+len(from.Fields))
	latest := eventstamp.Min

	for k, v := range into.Fields {
		fields[k] = v
	}
	for k, fv := range from.Fields {
		childPath := joinPath(path, k)
		iv, ok := fields[k]
		if !ok {
			fields[k] = cloneNode(fv)
			continue
		}
		merged, err := mergeAt(iv, fv, childPath)
		if err != nil {
			return nil, err
		}
		fields[k] = merged
	}
	for _, child := range fields {
		latest = eventstamp.Max(latest, child.Latest)
	}
	return &Node{Fields: fields, Latest: latest}, nil
}

func mergeLeaf(into, from *Node) *Node {
	// Keep whichever leaf carries the greater stamp; on an exact tie prefer
	// "from".
	if eventstamp.Less(into.Leaf.Stamp, from.Leaf.Stamp) {
		return cloneNode(from)
	}
	if eventstamp.Less(from.Leaf.Stamp, into.Leaf.Stamp) {
		return cloneNode(into)
	}
	return cloneNode(from)
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		leaf := *n.Leaf
		return &Node{Leaf: &leaf, Latest: n.Latest}
	}
	fields := make(map[string]*Node, len(n.Fields))
	for k, v := range n.Fields {
		fields[k] = cloneNode(v)
	}
	return &Node{Fields: fields, Latest: n.Latest}
}
