// Package navmap provides thin navigable-map views over a pkg/blink.Tree:
// bounded sub-maps, a reversed (descending) view, and key/entry/value
// collections. The spec calls these "external collaborators... thin
// adapters over the core tree operations," so none of them hold any state
// of their own beyond the bounds they were constructed with — every read
// goes straight through to the underlying Tree.
package navmap

import (
	"bytes"
	"fmt"

	"github.com/ssargent/blinkdb/pkg/blink"
)

// Entry is one key/value pair surfaced by an iteration over a View.
type Entry struct {
	Key   []byte
	Value []byte
}

// View is the common navigable-map surface both Tree and SubMap satisfy.
type View interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) (previous []byte, existed bool, err error)
	PutIfAbsent(key, value []byte) (existing []byte, existed bool, err error)
	Delete(key []byte) ([]byte, error)
	Scan(lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) (*blink.Iterator, error)
}

// SubMap is a bounded view of an underlying View, restricting every
// operation to keys within [lower, upper) (per the configured inclusivity).
// It never copies or caches entries; it only narrows the bounds passed
// through to the tree it wraps.
type SubMap struct {
	base           View
	lower          []byte
	lowerInclusive bool
	upper          []byte
	upperInclusive bool
}

// NewSubMap returns a SubMap over base restricted to the given bounds. A nil
// lower or upper is unbounded on that side, matching Tree.Scan. lower must
// not exceed upper when both are given (the spec's "submap bounds crossing"
// invalid-argument case).
func NewSubMap(base View, lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) (*SubMap, error) {
	if lower != nil && upper != nil && bytes.Compare(lower, upper) > 0 {
		return nil, fmt.Errorf("%w: sub-map lower bound exceeds upper bound", blink.ErrInvalidArgument)
	}
	return &SubMap{base: base, lower: lower, lowerInclusive: lowerInclusive, upper: upper, upperInclusive: upperInclusive}, nil
}

// Get returns the value for key if key falls within the sub-map's bounds.
func (s *SubMap) Get(key []byte) ([]byte, error) {
	if !s.keyInRange(key) {
		return nil, blink.ErrKeyNotFound
	}
	return s.base.Get(key)
}

// Put inserts key/value, rejecting keys outside the sub-map's bounds.
func (s *SubMap) Put(key, value []byte) ([]byte, bool, error) {
	if !s.keyInRange(key) {
		return nil, false, fmt.Errorf("%w: key outside sub-map bounds", blink.ErrInvalidArgument)
	}
	return s.base.Put(key, value)
}

// PutIfAbsent inserts key/value only if absent, rejecting keys outside bounds.
func (s *SubMap) PutIfAbsent(key, value []byte) ([]byte, bool, error) {
	if !s.keyInRange(key) {
		return nil, false, fmt.Errorf("%w: key outside sub-map bounds", blink.ErrInvalidArgument)
	}
	return s.base.PutIfAbsent(key, value)
}

// Delete removes key if it falls within the sub-map's bounds.
func (s *SubMap) Delete(key []byte) ([]byte, error) {
	if !s.keyInRange(key) {
		return nil, blink.ErrKeyNotFound
	}
	return s.base.Delete(key)
}

// Scan narrows [lower, upper) to the intersection of the caller's bounds
// and the sub-map's own, then delegates to the base view.
func (s *SubMap) Scan(lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) (*blink.Iterator, error) {
	effLower, effLowerInc := lower, lowerInclusive
	if s.lower != nil && (effLower == nil || bytes.Compare(s.lower, effLower) > 0) {
		effLower, effLowerInc = s.lower, s.lowerInclusive
	}
	effUpper, effUpperInc := upper, upperInclusive
	if s.upper != nil && (effUpper == nil || bytes.Compare(s.upper, effUpper) < 0) {
		effUpper, effUpperInc = s.upper, s.upperInclusive
	}
	return s.base.Scan(effLower, effLowerInc, effUpper, effUpperInc)
}

// keyInRange reports whether key is within the sub-map's configured bounds,
// using ordinary byte-slice comparison (the sub-map is a bounds filter, not
// a key-comparator consumer — callers constructing a SubMap over a Tree
// with a non-bytewise comparator should prefer Scan-based narrowing, which
// delegates ordering to the Tree itself).
func (s *SubMap) keyInRange(key []byte) bool {
	if s.lower != nil {
		c := bytes.Compare(key, s.lower)
		if c < 0 || (c == 0 && !s.lowerInclusive) {
			return false
		}
	}
	if s.upper != nil {
		c := bytes.Compare(key, s.upper)
		if c > 0 || (c == 0 && !s.upperInclusive) {
			return false
		}
	}
	return true
}
