package blink

import "github.com/ssargent/blinkdb/pkg/codec"

// Recid addresses one node's content inside the Engine. NoRef marks the
// absence of a reference (an empty sibling/child slot).
type Recid = int64

// NoRef is the reserved "no node" recid. CatalogRecid (0) is a legitimate
// node address, so NoRef must not collide with it.
const NoRef Recid = -1

// NodeContent is the immutable snapshot of one tree node. A leaf stores
// Vals and a right-sibling Next; an inner node stores Children, whose last
// slot doubles as this node's own right-sibling link once the node has
// split (see descendIndex below). Keys[0] and/or
// Keys[len(Keys)-1] are nil when this node is, respectively, the left-most
// or right-most node at its level, representing the ±infinity sentinels.
type NodeContent struct {
	IsLeaf   bool
	Keys     [][]byte
	Vals     [][]byte // leaf only, len(Vals) == len(Keys)-2
	Children []Recid  // inner only, len(Children) == len(Keys)
	Next     Recid    // leaf only, NoRef if this is the right-most leaf
}

// HighKey is this node's own upper bound, nil if it is the right-most node
// at its level (the +infinity sentinel).
func (c *NodeContent) HighKey() []byte {
	return c.Keys[len(c.Keys)-1]
}

// LowKey is this node's own lower bound, nil if it is the left-most node at
// its level (the -infinity sentinel).
func (c *NodeContent) LowKey() []byte {
	return c.Keys[0]
}

// nextRef returns the recid to follow when this node's high-key has been
// exceeded by a search target: the explicit Next field for a leaf, or the
// reserved last children slot for an inner node.
func (c *NodeContent) nextRef() Recid {
	if c.IsLeaf {
		return c.Next
	}
	if len(c.Children) == 0 {
		return NoRef
	}
	return c.Children[len(c.Children)-1]
}

// clone returns a deep copy safe for a writer to mutate in place. Readers
// only ever observe the atomically-swapped original, never this copy.
func (c *NodeContent) clone() *NodeContent {
	out := &NodeContent{IsLeaf: c.IsLeaf, Next: c.Next}
	out.Keys = append([][]byte(nil), c.Keys...)
	if c.Vals != nil {
		out.Vals = append([][]byte(nil), c.Vals...)
	}
	if c.Children != nil {
		out.Children = append([]Recid(nil), c.Children...)
	}
	return out
}

// keyCount returns the number of "real" entries this node holds: for a
// leaf, the number of stored key/value pairs; for an inner node, the
// number of real (non-link) children.
func (c *NodeContent) keyCount() int {
	if c.IsLeaf {
		return len(c.Vals)
	}
	if len(c.Children) == 0 {
		return 0
	}
	return len(c.Children) - 1
}

// findFirstGEChild returns the smallest index i such that keys[i] >= target
// under cmp, treating a nil entry at index 0 as -infinity and a nil entry
// at the last index as +infinity. Returns len(keys) if no entry qualifies.
func findFirstGEChild(cmp codec.Comparator, keys [][]byte, target []byte) int {
	n := len(keys)
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		var ge bool
		switch {
		case mid == 0 && keys[0] == nil:
			ge = false
		case mid == n-1 && keys[n-1] == nil:
			ge = true
		default:
			ge = cmp.Compare(keys[mid], target) >= 0
		}
		if ge {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// descendIndex maps the result of findFirstGEChild to a valid index into
// an inner node's Children array.
func descendIndex(geIdx int) int {
	if geIdx == 0 {
		return 0
	}
	return geIdx - 1
}

func newEmptyLeaf() *NodeContent {
	return &NodeContent{
		IsLeaf: true,
		Keys:   [][]byte{nil, nil},
		Vals:   [][]byte{},
		Next:   NoRef,
	}
}
