package blink

import "fmt"

// descentPath is the result of a root-to-leaf descent: the leaf reached,
// and the ancestor stack a mutator needs to drive split propagation.
// Ancestors accumulate per §4.4: every time the descent does NOT take the
// rightmost (link) child slot, the node being left is pushed, since that
// node is a genuine candidate parent for a split happening below it.
type descentPath struct {
	leaf      *node
	ancestors []*node
	// level is 1 at the leaf; the mutator raises it by one per level a split
	// propagates upward, matching LeftEdgeRegistry's leaves-at-0 indexing
	// via level-1.
	level int
}

// descend walks from root to the leaf that would contain target, recording
// the ancestor stack mutators use for split propagation.
func (t *Tree) descend(root *node, target []byte) (descentPath, error) {
	path := descentPath{level: 1}
	cur := root
	for {
		content := cur.snapshot()
		if content.IsLeaf {
			path.leaf = cur
			return path, nil
		}

		geIdx := findFirstGEChild(t.cmp, content.Keys, target)
		idx := descendIndex(geIdx)
		if idx != len(content.Children)-1 {
			path.ancestors = append(path.ancestors, cur)
		}

		childRecid := content.Children[idx]
		if childRecid == NoRef {
			return descentPath{}, fmt.Errorf("%w: descent hit an empty child slot", ErrCorrupt)
		}
		next, err := t.getNode(childRecid)
		if err != nil {
			return descentPath{}, err
		}
		cur = next
	}
}

// Get looks up key, implementing the Lookup procedure of §4.5: descend to a
// leaf, then refine rightward across sibling links until the key's slot (or
// its absence) is confirmed.
func (t *Tree) Get(key []byte) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key must not be nil", ErrInvalidArgument)
	}

	path, err := t.descend(t.rootNode(), key)
	if err != nil {
		return nil, err
	}

	leaf := path.leaf
	for {
		content := leaf.snapshot()
		pos := findFirstGEChild(t.cmp, content.Keys, key)

		if pos == len(content.Keys) {
			next, err := t.moveRight(content)
			if err != nil {
				return nil, err
			}
			if next == nil {
				return nil, ErrKeyNotFound
			}
			leaf = next
			continue
		}

		if pos == len(content.Keys)-1 || pos == 0 {
			return nil, ErrKeyNotFound
		}

		if content.Keys[pos] != nil && t.cmp.Compare(content.Keys[pos], key) == 0 {
			return t.resolveValue(content.Vals[pos-1])
		}
		return nil, ErrKeyNotFound
	}
}

// moveRight follows content's link pointer to the next leaf, or returns nil
// if this is already the rightmost leaf at its level.
func (t *Tree) moveRight(content *NodeContent) (*node, error) {
	next := content.nextRef()
	if next == NoRef {
		return nil, nil
	}
	return t.getNode(next)
}

// resolveValue expands a stored value, following the out-of-node indirection
// when the tree's codec is configured for it. A stored recid of 0 represents
// a tombstone and is reported as a miss.
func (t *Tree) resolveValue(stored []byte) ([]byte, error) {
	if t.codec.ValueMode != ValueModeOutOfNode {
		return stored, nil
	}
	recid, ok := decodeRecid(stored)
	if !ok || recid == 0 {
		return nil, ErrKeyNotFound
	}
	return t.engine.Get(recid)
}
