package blink

import "fmt"

// insertOp describes the single (key, payload) pair being threaded through
// the refinement loop: a (key, value) pair at the leaf, or a (separator,
// child-recid) pair carried up to an ancestor after a lower split.
type insertOp struct {
	isLeaf       bool
	target       []byte
	value        []byte
	child        Recid
	onlyIfAbsent bool
}

// Put inserts or overwrites key with value, returning the previous value and
// whether the key already existed.
func (t *Tree) Put(key, value []byte) (previous []byte, existed bool, err error) {
	return t.put(key, value, false)
}

// PutIfAbsent inserts value only if key is not already present, returning
// the existing value (and existed=true) without modifying the tree if it
// was.
func (t *Tree) PutIfAbsent(key, value []byte) (existing []byte, existed bool, err error) {
	return t.put(key, value, true)
}

func (t *Tree) put(key, value []byte, onlyIfAbsent bool) ([]byte, bool, error) {
	if key == nil || value == nil {
		return nil, false, fmt.Errorf("%w: key and value must not be nil", ErrInvalidArgument)
	}

	path, err := t.descend(t.rootNode(), key)
	if err != nil {
		return nil, false, err
	}

	ancestors := path.ancestors
	level := path.level
	cur := path.leaf
	op := insertOp{isLeaf: true, target: key, value: value, onlyIfAbsent: onlyIfAbsent}

	for {
		content := cur.lock()

		if op.isLeaf {
			pos := findFirstGEChild(t.cmp, content.Keys, op.target)
			if isRealMatch(content, pos, t.cmp, op.target) {
				if op.onlyIfAbsent {
					existing, rerr := t.resolveValue(content.Vals[pos-1])
					cur.unlock()
					return existing, true, rerr
				}
				old := content.Vals[pos-1]
				stored, serr := t.storeValue(value)
				if serr != nil {
					cur.unlock()
					return nil, false, serr
				}
				content.Vals[pos-1] = stored
				if cerr := t.commitNode(cur, content); cerr != nil {
					return nil, false, cerr
				}
				oldResolved, rerr := t.resolveValue(old)
				return oldResolved, true, rerr
			}
		}

		if highKey := content.HighKey(); highKey != nil && t.cmp.Compare(op.target, highKey) > 0 {
			cur.unlock()
			nextRecid := content.nextRef()
			if nextRecid == NoRef {
				return nil, false, fmt.Errorf("%w: move-right ran off the end of the level", errAssertion)
			}
			next, gerr := t.getNode(nextRecid)
			if gerr != nil {
				return nil, false, gerr
			}
			cur = next
			continue
		}

		pos := findFirstGEChild(t.cmp, content.Keys, op.target)

		if len(content.Keys) < t.capacity(content.IsLeaf) {
			if err := t.insertNoSplit(content, pos, &op); err != nil {
				cur.unlock()
				return nil, false, err
			}
			if err := t.commitNode(cur, content); err != nil {
				return nil, false, err
			}
			return nil, false, nil
		}

		aContent, bContent, err := t.buildSplit(content, pos, &op)
		if err != nil {
			cur.unlock()
			return nil, false, err
		}
		bNode, err := t.allocateNode(bContent)
		if err != nil {
			cur.unlock()
			return nil, false, err
		}
		patchLeftSiblingRef(aContent, bNode.id)
		if err := t.commitNode(cur, aContent); err != nil {
			return nil, false, err
		}

		if cur == t.rootNode() {
			rootContent := newRootAbove(aContent, cur.id, bNode.id)
			newRoot, err := t.allocateNode(rootContent)
			if err != nil {
				return nil, false, err
			}
			t.setRoot(newRoot)
			t.leftEdge.Append(newRoot.id)
			return nil, false, nil
		}

		nextTarget := aContent.HighKey()
		level++

		var parent *node
		if n := len(ancestors); n > 0 {
			parent = ancestors[n-1]
			ancestors = ancestors[:n-1]
		} else {
			parentRecid := t.leftEdge.At(level - 1)
			if parentRecid == NoRef {
				return nil, false, fmt.Errorf("%w: no ancestor and no left-edge entry at level %d", errAssertion, level-1)
			}
			parent, err = t.getNode(parentRecid)
			if err != nil {
				return nil, false, err
			}
		}
		cur = parent
		op = insertOp{isLeaf: false, target: nextTarget, child: bNode.id}
	}
}

// isRealMatch reports whether pos lands on a real (valued) key slot equal to
// target — never the leading or trailing boundary slot, which never carry a
// value of their own (invariant 4).
func isRealMatch(content *NodeContent, pos int, cmp interface {
	Compare(a, b []byte) int
}, target []byte) bool {
	if pos <= 0 || pos >= len(content.Keys)-1 {
		return false
	}
	return content.Keys[pos] != nil && cmp.Compare(content.Keys[pos], target) == 0
}

// storeValue returns the bytes a leaf slot should hold for value: the value
// itself, or (in out-of-node mode) an encoded recid of a freshly persisted
// out-of-node record.
func (t *Tree) storeValue(value []byte) ([]byte, error) {
	if t.codec.ValueMode != ValueModeOutOfNode {
		return value, nil
	}
	recid, err := t.engine.Put(value)
	if err != nil {
		return nil, fmt.Errorf("blink: persist out-of-node value: %w", err)
	}
	return encodeRecid(recid), nil
}

// insertNoSplit performs the room-test branch of §4.6 step 3: insert op's
// payload directly into content without growing past capacity.
func (t *Tree) insertNoSplit(content *NodeContent, pos int, op *insertOp) error {
	if op.isLeaf {
		stored, err := t.storeValue(op.value)
		if err != nil {
			return err
		}
		content.Keys = insertBytes(content.Keys, pos, op.target)
		content.Vals = insertBytes(content.Vals, pos-1, stored)
		return nil
	}
	content.Keys = insertBytes(content.Keys, pos, op.target)
	content.Children = insertRecid(content.Children, pos, op.child)
	return nil
}

// buildSplit implements §4.6 step 4: build the augmented content with op
// already applied, then divide it into the updated left node (A') and the
// brand new right sibling (B). split rounds the larger half to B.
func (t *Tree) buildSplit(content *NodeContent, pos int, op *insertOp) (aContent, bContent *NodeContent, err error) {
	if op.isLeaf {
		stored, serr := t.storeValue(op.value)
		if serr != nil {
			return nil, nil, serr
		}
		augKeys := insertBytes(content.Keys, pos, op.target)
		augVals := insertBytes(content.Vals, pos-1, stored)
		n := len(augKeys)
		split := n / 2

		b := &NodeContent{
			IsLeaf: true,
			Keys:   append([][]byte(nil), augKeys[split:]...),
			Vals:   append([][]byte(nil), augVals[split:]...),
			Next:   content.Next,
		}

		aKeys := append([][]byte(nil), augKeys[:split+2]...)
		aKeys[split+1] = augKeys[split]
		a := &NodeContent{
			IsLeaf: true,
			Keys:   aKeys,
			Vals:   append([][]byte(nil), augVals[:split]...),
		}
		return a, b, nil
	}

	augKeys := insertBytes(content.Keys, pos, op.target)
	augChildren := insertRecid(content.Children, pos, op.child)
	n := len(augKeys)
	split := n / 2

	b := &NodeContent{
		IsLeaf:   false,
		Keys:     append([][]byte(nil), augKeys[split:]...),
		Children: append([]Recid(nil), augChildren[split:]...),
	}

	aKeys := append([][]byte(nil), augKeys[:split+1]...)
	aChildren := append([]Recid(nil), augChildren[:split+1]...)
	a := &NodeContent{
		IsLeaf:   false,
		Keys:     aKeys,
		Children: aChildren,
	}
	return a, b, nil
}

// patchLeftSiblingRef wires a's new right-sibling link to b now that b has
// been allocated and has a recid: Next for a leaf, the reserved last
// children slot for an inner node.
func patchLeftSiblingRef(a *NodeContent, b Recid) {
	if a.IsLeaf {
		a.Next = b
		return
	}
	a.Children[len(a.Children)-1] = b
}

// newRootAbove builds the brand new inner root §4.6 step 6 installs when the
// node being split was the tree's root: keys [A'.Keys[0], A'.HighKey(),
// sentinel], children [A, B, sentinel_ref]. The old root keeps its recid
// unchanged — only RootRef starts pointing at this new node instead.
func newRootAbove(a *NodeContent, aRecid, b Recid) *NodeContent {
	return &NodeContent{
		IsLeaf:   false,
		Keys:     [][]byte{a.Keys[0], a.HighKey(), nil},
		Children: []Recid{aRecid, b, NoRef},
	}
}

func insertBytes(slice [][]byte, idx int, v []byte) [][]byte {
	out := make([][]byte, 0, len(slice)+1)
	out = append(out, slice[:idx]...)
	out = append(out, v)
	out = append(out, slice[idx:]...)
	return out
}

func insertRecid(slice []Recid, idx int, v Recid) []Recid {
	out := make([]Recid, 0, len(slice)+1)
	out = append(out, slice[:idx]...)
	out = append(out, v)
	out = append(out, slice[idx:]...)
	return out
}
