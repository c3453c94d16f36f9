package blink

import "fmt"

// Iterator walks an ordered run of key/value pairs produced by Tree.Scan. It
// holds at most one leaf's content at a time and crosses sibling links
// lazily, so an unbounded scan never materializes the whole range at once.
type Iterator struct {
	t     *Tree
	leaf  *node
	pos   int // next candidate index into leaf's snapshot().Keys
	upper []byte
	// upperInclusive governs whether a candidate key equal to upper is
	// emitted; irrelevant once upper is nil (unbounded above).
	upperInclusive bool

	key, value []byte
	done       bool
	err        error
}

// Scan returns an Iterator over keys in [lower, upper] (bounds honoring
// lowerInclusive/upperInclusive), per §4.8. A nil bound is unbounded on that
// side. Both bounds nil is an explicit empty result, not a full scan.
func (t *Tree) Scan(lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) (*Iterator, error) {
	if lower == nil && upper == nil {
		return &Iterator{done: true}, nil
	}
	if lower != nil && upper != nil {
		c := t.cmp.Compare(lower, upper)
		if c > 0 {
			return &Iterator{done: true}, nil
		}
		if c == 0 {
			// §4.8: "lower == upper -> returns the single value iff EITHER
			// inclusivity holds." Applying lowerInclusive and upperInclusive
			// as two independent position tests ANDs them together instead;
			// here there is only one key in play, so whichever flag holds
			// wins and both sides of the lookup honor it.
			if !lowerInclusive && !upperInclusive {
				return &Iterator{done: true}, nil
			}
			lowerInclusive = true
			upperInclusive = true
		}
	}

	leaf, pos, empty, err := t.locateLowerBound(lower, lowerInclusive)
	if err != nil {
		return nil, err
	}
	if empty {
		return &Iterator{done: true}, nil
	}

	return &Iterator{t: t, leaf: leaf, pos: pos, upper: upper, upperInclusive: upperInclusive}, nil
}

// locateLowerBound finds the leaf and position of the first candidate entry
// at or after lower (honoring inclusivity), or reports the scan is empty.
func (t *Tree) locateLowerBound(lower []byte, lowerInclusive bool) (*node, int, bool, error) {
	if lower == nil {
		leaf, err := t.leftmostLeaf()
		if err != nil {
			return nil, 0, false, err
		}
		return leaf, 1, false, nil
	}

	path, err := t.descend(t.rootNode(), lower)
	if err != nil {
		return nil, 0, false, err
	}
	leaf := path.leaf

	for {
		content := leaf.snapshot()
		pos := findFirstGEChild(t.cmp, content.Keys, lower)

		if pos == len(content.Keys) {
			next, err := t.moveRight(content)
			if err != nil {
				return nil, 0, false, err
			}
			if next == nil {
				return nil, 0, true, nil
			}
			leaf = next
			continue
		}

		if pos > 0 && pos < len(content.Keys)-1 && content.Keys[pos] != nil && t.cmp.Compare(content.Keys[pos], lower) == 0 {
			if !lowerInclusive {
				pos++
			}
		} else if pos == 0 {
			pos = 1
		}

		if pos >= len(content.Keys)-1 {
			next, err := t.moveRight(content)
			if err != nil {
				return nil, 0, false, err
			}
			if next == nil {
				return nil, 0, true, nil
			}
			leaf = next
			continue
		}

		return leaf, pos, false, nil
	}
}

// leftmostLeaf descends the tree always taking the leftmost child, for an
// unbounded-below scan.
func (t *Tree) leftmostLeaf() (*node, error) {
	cur := t.rootNode()
	for {
		content := cur.snapshot()
		if content.IsLeaf {
			return cur, nil
		}
		if len(content.Children) == 0 {
			return nil, fmt.Errorf("%w: inner node with no children", ErrCorrupt)
		}
		next, err := t.getNode(content.Children[0])
		if err != nil {
			return nil, err
		}
		cur = next
	}
}

// Next advances the iterator, returning false when the range is exhausted
// or an error occurred (check Err to distinguish).
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}

	for {
		content := it.leaf.snapshot()
		if it.pos >= len(content.Keys)-1 {
			next := content.nextRef()
			if next == NoRef {
				it.done = true
				return false
			}
			nd, err := it.t.getNode(next)
			if err != nil {
				it.err = err
				it.done = true
				return false
			}
			it.leaf = nd
			it.pos = 1
			continue
		}

		key := content.Keys[it.pos]
		if it.upper != nil {
			c := it.t.cmp.Compare(key, it.upper)
			if c > 0 || (c == 0 && !it.upperInclusive) {
				it.done = true
				return false
			}
		}

		value, err := it.t.resolveValue(content.Vals[it.pos-1])
		if err != nil {
			it.err = err
			it.done = true
			return false
		}

		it.key = key
		it.value = value
		it.pos++
		return true
	}
}

// Key returns the current entry's key. Valid only after Next returns true.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value. Valid only after Next returns true.
func (it *Iterator) Value() []byte { return it.value }

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Close releases iterator resources. An Iterator holds no resources beyond
// node references already cached by the tree, so Close is a no-op kept for
// interface symmetry with other collaborators (e.g. io.Closer-style callers).
func (it *Iterator) Close() error { return nil }
