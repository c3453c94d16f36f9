package blink

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ssargent/blinkdb/pkg/codec"
	"github.com/ssargent/blinkdb/pkg/engine"
)

// Order is the tree-wide max node size B (invariant 5): even, 6 <= B <= 126.
// A leaf holds at most B+2 key slots, an inner node at most B+1.
const (
	MinOrder = 6
	MaxOrder = 126
)

// Tree is one independent B-link index. RootRef lives on the instance, never
// as a package global, so two Trees in the same process never share state
// beyond whatever Engine they're explicitly given.
type Tree struct {
	engine engine.Engine
	cmp    codec.Comparator
	codec  *NodeCodec
	order  int

	root     atomic.Pointer[node]
	leftEdge *LeftEdgeRegistry

	cacheMu sync.Mutex
	cache   map[Recid]*node
}

// Options configures a new Tree. KeySerializer/ValueSerializer default to
// codec.DeltaKeySerializer/codec.RawValueSerializer, Comparator defaults to
// codec.BytewiseComparator, all set by NewTree when left zero-valued.
type Options struct {
	Order      int
	Comparator codec.Comparator
	Keys       codec.KeySerializer
	Vals       codec.ValueSerializer
	ValueMode  ValueMode
}

// NewTree creates an empty tree backed by eng, allocating and installing a
// fresh empty root (the createEmptyRoot lifecycle event).
func NewTree(eng engine.Engine, opts Options) (*Tree, error) {
	t, err := newTreeShell(eng, opts)
	if err != nil {
		return nil, err
	}

	rootContent := newEmptyLeaf()
	rootRecid, err := t.persistNew(rootContent)
	if err != nil {
		return nil, fmt.Errorf("blink: create empty root: %w", err)
	}
	rootNode := newNode(rootRecid, rootContent)
	t.cache[rootRecid] = rootNode
	t.root.Store(rootNode)
	t.leftEdge = newLeftEdgeRegistry(rootRecid)

	return t, nil
}

// OpenTree reconstructs a Tree over an Engine that already holds a
// previously-built node graph, pointing its root at rootRecid instead of
// allocating a fresh empty one. Used by callers (see pkg/index) that persist
// a tree's root recid themselves alongside the Engine's own storage.
func OpenTree(eng engine.Engine, opts Options, rootRecid Recid) (*Tree, error) {
	t, err := newTreeShell(eng, opts)
	if err != nil {
		return nil, err
	}

	root, err := t.getNode(rootRecid)
	if err != nil {
		return nil, fmt.Errorf("blink: load root %d: %w", rootRecid, err)
	}
	t.root.Store(root)
	var edges []Recid
	cur := root
	for {
		edges = append([]Recid{cur.id}, edges...)
		content := cur.snapshot()
		if content.IsLeaf {
			break
		}
		next, err := t.getNode(content.Children[0])
		if err != nil {
			return nil, fmt.Errorf("blink: load left edge: %w", err)
		}
		cur = next
	}
	t.leftEdge = &LeftEdgeRegistry{edges: edges}
	return t, nil
}

// newTreeShell validates opts and builds a Tree with no root installed yet.
func newTreeShell(eng engine.Engine, opts Options) (*Tree, error) {
	if opts.Order == 0 {
		opts.Order = MinOrder
	}
	if opts.Order < MinOrder || opts.Order > MaxOrder || opts.Order%2 != 0 {
		return nil, fmt.Errorf("%w: order must be even and in [%d, %d], got %d", ErrInvalidArgument, MinOrder, MaxOrder, opts.Order)
	}
	if opts.Comparator == nil {
		opts.Comparator = codec.BytewiseComparator{}
	}
	if opts.Keys == nil {
		opts.Keys = codec.DeltaKeySerializer{}
	}
	if opts.Vals == nil {
		opts.Vals = codec.RawValueSerializer{}
	}

	return &Tree{
		engine: eng,
		cmp:    opts.Comparator,
		codec: &NodeCodec{
			Keys:      opts.Keys,
			Vals:      opts.Vals,
			ValueMode: opts.ValueMode,
		},
		order: opts.Order,
		cache: make(map[Recid]*node),
	}, nil
}

// Close releases the underlying Engine.
func (t *Tree) Close() error {
	return t.engine.Close()
}

// Commit flushes and durably syncs every Put/Delete issued so far, via the
// underlying Engine's own Commit. Individual mutations are already visible
// to concurrent readers the moment they install; Commit is only about
// durability, not visibility.
func (t *Tree) Commit() error {
	return t.engine.Commit()
}

// Order reports the tree's configured max node size B.
func (t *Tree) Order() int { return t.order }

// RootRecid reports the recid of the tree's current root node, the value a
// caller must remember (alongside the Engine's own storage) to reopen this
// tree later via OpenTree.
func (t *Tree) RootRecid() Recid {
	return t.rootNode().id
}

// persistNew encodes content and stores it as a brand new record, returning
// its recid.
func (t *Tree) persistNew(content *NodeContent) (Recid, error) {
	data, err := t.codec.Encode(content)
	if err != nil {
		return NoRef, fmt.Errorf("blink: encode node: %w", err)
	}
	recid, err := t.engine.Put(data)
	if err != nil {
		return NoRef, fmt.Errorf("blink: persist node: %w", err)
	}
	return recid, nil
}

// persistUpdate encodes content and overwrites the record at recid.
func (t *Tree) persistUpdate(recid Recid, content *NodeContent) error {
	data, err := t.codec.Encode(content)
	if err != nil {
		return fmt.Errorf("blink: encode node: %w", err)
	}
	if err := t.engine.Update(recid, data); err != nil {
		return fmt.Errorf("blink: persist node update: %w", err)
	}
	return nil
}

// getNode returns the cached node wrapper for recid, loading and decoding it
// from the Engine and populating the cache on a miss.
func (t *Tree) getNode(recid Recid) (*node, error) {
	t.cacheMu.Lock()
	if nd, ok := t.cache[recid]; ok {
		t.cacheMu.Unlock()
		return nd, nil
	}
	t.cacheMu.Unlock()

	data, err := t.engine.Get(recid)
	if err != nil {
		return nil, fmt.Errorf("blink: load node %d: %w", recid, err)
	}
	content, err := t.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("blink: decode node %d: %w", recid, err)
	}

	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	if nd, ok := t.cache[recid]; ok {
		return nd, nil
	}
	nd := newNode(recid, content)
	t.cache[recid] = nd
	return nd, nil
}

// allocateNode persists content as a new record and wraps it in a cached
// node, used when a split creates a brand new sibling.
func (t *Tree) allocateNode(content *NodeContent) (*node, error) {
	recid, err := t.persistNew(content)
	if err != nil {
		return nil, err
	}
	nd := newNode(recid, content)
	t.cacheMu.Lock()
	t.cache[recid] = nd
	t.cacheMu.Unlock()
	return nd, nil
}

// commitNode persists content to the Engine and, only once that succeeds,
// installs it as nd's new content and releases nd's writer mutex. nd must
// already be locked (via nd.lock()). On a persist failure nd is unlocked
// with its prior content left in place, so a failed write never leaves the
// in-memory tree ahead of what the Engine actually has durable.
func (t *Tree) commitNode(nd *node, content *NodeContent) error {
	if err := t.persistUpdate(nd.id, content); err != nil {
		nd.unlock()
		return err
	}
	nd.installAndUnlock(content)
	return nil
}

// rootNode returns the tree's current root node wrapper.
func (t *Tree) rootNode() *node {
	return t.root.Load()
}

// setRoot atomically installs newRoot as the tree's root, the single update
// that makes root promotion observable to every reader (RootRef).
func (t *Tree) setRoot(newRoot *node) {
	t.root.Store(newRoot)
}

// capacity returns the maximum number of key slots a node of this kind may
// hold before it must split: B+2 for a leaf, B+1 for an inner node.
func (t *Tree) capacity(isLeaf bool) int {
	if isLeaf {
		return t.order + 2
	}
	return t.order + 1
}
