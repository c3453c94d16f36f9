package blink

import (
	"bytes"
	"testing"
)

func contentsEqual(t *testing.T, got, want *NodeContent) {
	t.Helper()
	if got.IsLeaf != want.IsLeaf {
		t.Fatalf("IsLeaf = %v, want %v", got.IsLeaf, want.IsLeaf)
	}
	if len(got.Keys) != len(want.Keys) {
		t.Fatalf("len(Keys) = %d, want %d", len(got.Keys), len(want.Keys))
	}
	for i := range want.Keys {
		if !bytes.Equal(got.Keys[i], want.Keys[i]) {
			t.Errorf("Keys[%d] = %q, want %q", i, got.Keys[i], want.Keys[i])
		}
	}
	if want.IsLeaf {
		if len(got.Vals) != len(want.Vals) {
			t.Fatalf("len(Vals) = %d, want %d", len(got.Vals), len(want.Vals))
		}
		for i := range want.Vals {
			if !bytes.Equal(got.Vals[i], want.Vals[i]) {
				t.Errorf("Vals[%d] = %q, want %q", i, got.Vals[i], want.Vals[i])
			}
		}
		if got.Next != want.Next {
			t.Errorf("Next = %d, want %d", got.Next, want.Next)
		}
	} else {
		if len(got.Children) != len(want.Children) {
			t.Fatalf("len(Children) = %d, want %d", len(got.Children), len(want.Children))
		}
		for i := range want.Children {
			if got.Children[i] != want.Children[i] {
				t.Errorf("Children[%d] = %d, want %d", i, got.Children[i], want.Children[i])
			}
		}
	}
}

func TestNodeCodecLeafRoundTrip(t *testing.T) {
	c := NewNodeCodec()
	content := &NodeContent{
		IsLeaf: true,
		Keys:   [][]byte{nil, []byte("apple"), []byte("banana"), []byte("cherry"), nil},
		Vals:   [][]byte{[]byte("1"), []byte("2"), []byte("3")},
		Next:   42,
	}

	data, err := c.Encode(content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	contentsEqual(t, got, content)
}

func TestNodeCodecInnerRoundTrip(t *testing.T) {
	c := NewNodeCodec()
	content := &NodeContent{
		IsLeaf:   false,
		Keys:     [][]byte{[]byte("apple"), []byte("mango"), nil},
		Children: []Recid{10, 20, NoRef},
	}

	data, err := c.Encode(content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	contentsEqual(t, got, content)
}

func TestNodeCodecEmptyLeafRoundTrip(t *testing.T) {
	c := NewNodeCodec()
	content := newEmptyLeaf()

	data, err := c.Encode(content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	contentsEqual(t, got, content)
}

func TestNodeCodecSetModeRoundTrip(t *testing.T) {
	c := NewNodeCodec()
	c.ValueMode = ValueModeSet
	content := &NodeContent{
		IsLeaf: true,
		Keys:   [][]byte{nil, []byte("a"), []byte("b"), []byte("c"), nil},
		Vals:   [][]byte{[]byte{}, nil, []byte{}},
		Next:   NoRef,
	}

	data, err := c.Encode(content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Vals) != 3 {
		t.Fatalf("len(Vals) = %d, want 3", len(got.Vals))
	}
	if got.Vals[0] == nil || got.Vals[1] != nil || got.Vals[2] == nil {
		t.Errorf("decoded presence bits = %v, %v, %v, want present,absent,present",
			got.Vals[0] != nil, got.Vals[1] != nil, got.Vals[2] != nil)
	}
}

func TestNodeCodecOutOfNodeRoundTrip(t *testing.T) {
	c := NewNodeCodec()
	c.ValueMode = ValueModeOutOfNode
	content := &NodeContent{
		IsLeaf: true,
		Keys:   [][]byte{nil, []byte("a"), []byte("b"), nil},
		Vals:   [][]byte{encodeRecid(7), nil},
		Next:   NoRef,
	}

	data, err := c.Encode(content)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotRecid, ok := decodeRecid(got.Vals[0])
	if !ok || gotRecid != 7 {
		t.Errorf("Vals[0] recid = %v, ok=%v, want 7", gotRecid, ok)
	}
	if got.Vals[1] != nil {
		t.Errorf("Vals[1] = %v, want tombstone (nil)", got.Vals[1])
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, isLeaf := range []bool{true, false} {
		for _, left := range []bool{true, false} {
			for _, right := range []bool{true, false} {
				h := header(isLeaf, left, right)
				gotLeaf, gotLeft, gotRight, err := parseHeader(h)
				if err != nil {
					t.Fatalf("parseHeader(%d): %v", h, err)
				}
				if gotLeaf != isLeaf || gotLeft != left || gotRight != right {
					t.Errorf("header round trip mismatch: got (%v,%v,%v), want (%v,%v,%v)",
						gotLeaf, gotLeft, gotRight, isLeaf, left, right)
				}
			}
		}
	}
}
