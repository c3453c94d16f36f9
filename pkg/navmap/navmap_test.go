package navmap

import (
	"testing"

	"github.com/ssargent/blinkdb/pkg/blink"
	"github.com/ssargent/blinkdb/pkg/engine"
)

func newTestTree(t *testing.T) *blink.Tree {
	t.Helper()
	tree, err := blink.NewTree(engine.NewMemoryEngine(), blink.Options{Order: blink.MinOrder})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return tree
}

func seed(t *testing.T, tree *blink.Tree, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if _, _, err := tree.Put([]byte(k), []byte("v-"+k)); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}
}

func TestSubMapRejectsOutOfBoundsKey(t *testing.T) {
	tree := newTestTree(t)
	seed(t, tree, "a", "b", "c", "d", "e")

	sub, err := NewSubMap(tree, []byte("b"), true, []byte("d"), false)
	if err != nil {
		t.Fatalf("NewSubMap: %v", err)
	}

	if _, err := sub.Get([]byte("a")); err != blink.ErrKeyNotFound {
		t.Errorf("Get(a) err = %v, want ErrKeyNotFound", err)
	}
	if _, err := sub.Get([]byte("d")); err != blink.ErrKeyNotFound {
		t.Errorf("Get(d) err = %v, want ErrKeyNotFound (upper exclusive)", err)
	}
	v, err := sub.Get([]byte("b"))
	if err != nil || string(v) != "v-b" {
		t.Errorf("Get(b) = %q, err=%v, want v-b", v, err)
	}
	if _, _, err := sub.Put([]byte("z"), []byte("x")); err == nil {
		t.Errorf("Put(z) outside bounds should fail")
	}
}

func TestSubMapCrossedBoundsRejected(t *testing.T) {
	tree := newTestTree(t)
	if _, err := NewSubMap(tree, []byte("z"), true, []byte("a"), true); err == nil {
		t.Errorf("NewSubMap with lower > upper should fail")
	}
}

func TestSubMapScanNarrowsBounds(t *testing.T) {
	tree := newTestTree(t)
	seed(t, tree, "a", "b", "c", "d", "e", "f")

	sub, err := NewSubMap(tree, []byte("b"), true, []byte("e"), true)
	if err != nil {
		t.Fatalf("NewSubMap: %v", err)
	}

	entries, err := EntrySet(sub, nil, false, nil, false)
	if err != nil {
		t.Fatalf("EntrySet: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, string(e.Key))
	}
	want := []string{"b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("EntrySet = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EntrySet[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDescendingMapReversesOrder(t *testing.T) {
	tree := newTestTree(t)
	seed(t, tree, "1", "2", "3", "4", "5")

	desc := NewDescendingMap(tree, []byte{0}, true, nil, false)
	entries, err := desc.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := []string{"5", "4", "3", "2", "1"}
	if len(entries) != len(want) {
		t.Fatalf("Entries = %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if string(e.Key) != want[i] {
			t.Errorf("Entries[%d].Key = %q, want %q", i, e.Key, want[i])
		}
	}

	first, ok, err := desc.FirstKey()
	if err != nil || !ok || string(first) != "5" {
		t.Errorf("FirstKey() = %q, ok=%v, err=%v, want 5", first, ok, err)
	}
}

func TestKeySetAndValueCollection(t *testing.T) {
	tree := newTestTree(t)
	seed(t, tree, "a", "b", "c")

	keys, err := KeySet(tree, []byte{0}, true, nil, false)
	if err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("KeySet = %d keys, want 3", len(keys))
	}

	vals, err := ValueCollection(tree, []byte{0}, true, nil, false)
	if err != nil {
		t.Fatalf("ValueCollection: %v", err)
	}
	if len(vals) != 3 || string(vals[0]) != "v-a" {
		t.Fatalf("ValueCollection = %v, want [v-a v-b v-c]", vals)
	}
}
