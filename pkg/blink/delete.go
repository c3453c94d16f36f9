package blink

import (
	"bytes"
	"fmt"
)

// Delete removes key unconditionally, returning its prior value.
func (t *Tree) Delete(key []byte) ([]byte, error) {
	return t.delete(key, nil, false)
}

// CompareAndDelete removes key only if its current value equals expected,
// returning the value that was actually removed (or ErrKeyNotFound if the
// key was absent or held a different value).
func (t *Tree) CompareAndDelete(key, expected []byte) ([]byte, error) {
	return t.delete(key, expected, true)
}

// delete implements §4.7: a leaf-only logical delete. It never merges or
// rebalances nodes, so the tree's shape only ever changes through Put's
// splits; repeated deletes may leave sparse leaves, an acknowledged
// trade-off left for a future compaction pass.
func (t *Tree) delete(key, expected []byte, checkExpected bool) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key must not be nil", ErrInvalidArgument)
	}

	path, err := t.descend(t.rootNode(), key)
	if err != nil {
		return nil, err
	}
	cur := path.leaf

	for {
		content := cur.lock()
		pos := findFirstGEChild(t.cmp, content.Keys, key)

		if isRealMatch(content, pos, t.cmp, key) {
			oldStored := content.Vals[pos-1]
			old, rerr := t.resolveValue(oldStored)
			if rerr != nil {
				cur.unlock()
				return nil, rerr
			}
			if checkExpected && !bytes.Equal(old, expected) {
				cur.unlock()
				return nil, ErrKeyNotFound
			}
			content.Keys = removeBytes(content.Keys, pos)
			content.Vals = removeBytes(content.Vals, pos-1)
			if cerr := t.commitNode(cur, content); cerr != nil {
				return nil, cerr
			}
			return old, nil
		}

		if highKey := content.HighKey(); highKey != nil && t.cmp.Compare(key, highKey) > 0 {
			cur.unlock()
			nextRecid := content.nextRef()
			if nextRecid == NoRef {
				return nil, ErrKeyNotFound
			}
			next, gerr := t.getNode(nextRecid)
			if gerr != nil {
				return nil, gerr
			}
			cur = next
			continue
		}

		cur.unlock()
		return nil, ErrKeyNotFound
	}
}

func removeBytes(slice [][]byte, idx int) [][]byte {
	out := make([][]byte, 0, len(slice)-1)
	out = append(out, slice[:idx]...)
	out = append(out, slice[idx+1:]...)
	return out
}
