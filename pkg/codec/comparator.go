package codec

import (
	"bytes"
	"encoding/binary"
)

// Comparator orders two keys. Implementations must be a strict total order
// consistent with how the matching KeySerializer encodes keys: if
// Compare(a, b) < 0 then a must sort before b in the serialized stream a
// KeySerializer would produce for [a, b].
type Comparator interface {
	Compare(a, b []byte) int
}

// ComparatorFunc adapts a plain function to the Comparator interface.
type ComparatorFunc func(a, b []byte) int

// Compare implements Comparator.
func (f ComparatorFunc) Compare(a, b []byte) int { return f(a, b) }

// BytewiseComparator orders keys by plain lexicographic byte order. This is
// the default comparator and the only one that needs no assumption about
// key shape.
type BytewiseComparator struct{}

// Compare implements Comparator.
func (BytewiseComparator) Compare(a, b []byte) int { return bytes.Compare(a, b) }

// Uint64Comparator orders keys as big-endian-encoded uint64 values, for
// trees whose keys are fixed-width integers (e.g. a recid-keyed catalog).
// Big-endian encoding is required: it is the only fixed-width integer
// encoding whose byte order matches its numeric order, so BytewiseComparator
// could not be reused here.
type Uint64Comparator struct{}

// Compare implements Comparator. Keys shorter than 8 bytes sort before
// keys of the correct width.
func (Uint64Comparator) Compare(a, b []byte) int {
	av, aok := decodeUint64(a)
	bv, bok := decodeUint64(b)
	switch {
	case !aok && !bok:
		return bytes.Compare(a, b)
	case !aok:
		return -1
	case !bok:
		return 1
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func decodeUint64(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// EncodeUint64Key encodes v as an 8-byte big-endian key compatible with
// Uint64Comparator.
func EncodeUint64Key(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
