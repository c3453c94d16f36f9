package blink

import (
	"testing"

	"github.com/ssargent/blinkdb/pkg/codec"
)

func TestFindFirstGEChild(t *testing.T) {
	cmp := codec.BytewiseComparator{}
	keys := [][]byte{nil, []byte("b"), []byte("d"), []byte("f"), nil}

	cases := []struct {
		target []byte
		want   int
	}{
		{[]byte("a"), 1},
		{[]byte("b"), 1},
		{[]byte("c"), 2},
		{[]byte("d"), 2},
		{[]byte("e"), 3},
		{[]byte("f"), 3},
		{[]byte("z"), 4},
	}

	for _, c := range cases {
		if got := findFirstGEChild(cmp, keys, c.target); got != c.want {
			t.Errorf("findFirstGEChild(%s) = %d, want %d", c.target, got, c.want)
		}
	}
}

func TestDescendIndex(t *testing.T) {
	cases := []struct{ geIdx, want int }{
		{0, 0},
		{1, 0},
		{2, 1},
		{4, 3},
	}
	for _, c := range cases {
		if got := descendIndex(c.geIdx); got != c.want {
			t.Errorf("descendIndex(%d) = %d, want %d", c.geIdx, got, c.want)
		}
	}
}

func TestNodeContentHighLowKey(t *testing.T) {
	c := &NodeContent{Keys: [][]byte{nil, []byte("m"), nil}}
	if c.LowKey() != nil {
		t.Error("expected nil low key for left-most node")
	}
	if c.HighKey() != nil {
		t.Error("expected nil high key for right-most node")
	}

	c2 := &NodeContent{Keys: [][]byte{[]byte("a"), []byte("m"), []byte("z")}}
	if string(c2.LowKey()) != "a" {
		t.Errorf("LowKey() = %q, want %q", c2.LowKey(), "a")
	}
	if string(c2.HighKey()) != "z" {
		t.Errorf("HighKey() = %q, want %q", c2.HighKey(), "z")
	}
}

func TestNodeContentClone(t *testing.T) {
	c := &NodeContent{
		IsLeaf: true,
		Keys:   [][]byte{nil, []byte("a"), nil},
		Vals:   [][]byte{[]byte("1")},
		Next:   NoRef,
	}
	clone := c.clone()
	clone.Keys[1] = []byte("z")
	if string(c.Keys[1]) != "a" {
		t.Error("mutating clone affected original content")
	}
}

func TestNewEmptyLeaf(t *testing.T) {
	leaf := newEmptyLeaf()
	if !leaf.IsLeaf {
		t.Error("expected a leaf")
	}
	if leaf.keyCount() != 0 {
		t.Errorf("expected 0 entries, got %d", leaf.keyCount())
	}
	if leaf.LowKey() != nil || leaf.HighKey() != nil {
		t.Error("expected an empty leaf to be both left-most and right-most")
	}
}
