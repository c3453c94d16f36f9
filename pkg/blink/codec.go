package blink

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ssargent/blinkdb/pkg/codec"
)

// headerTag encodes (leaf|inner) x (has-left-sentinel, has-right-sentinel) as
// one of eight byte values in [180, 187]. The base is arbitrary but fixed so
// a stray byte from some other framing never parses as a valid node header.
const headerBase = 180

const (
	headerBitLeaf         = 1 << 2
	headerBitLeftSentinel = 1 << 1
	headerBitRightSent    = 1 << 0
)

// ValueMode selects how a leaf's values are framed by NodeCodec.
type ValueMode int

const (
	// ValueModeInline stores each value's bytes directly in the node via the
	// ValueSerializer. Best when values are small.
	ValueModeInline ValueMode = iota
	// ValueModeOutOfNode stores only a varint-encoded recid per slot, with the
	// value itself kept as a separate record in the Engine. A stored recid
	// of 0 denotes a tombstone: the value was reclaimed but the key's slot
	// has not yet been compacted out of the node.
	ValueModeOutOfNode
	// ValueModeSet stores no values at all, just a bit-packed presence array,
	// for trees used as ordered sets rather than maps.
	ValueModeSet
)

// NodeCodec encodes and decodes NodeContent to and from the byte layout the
// Engine persists. numMetas placeholder longs are reserved for forward
// compatibility with features this package does not yet use (e.g. per-node
// flags added by a future version); this package always writes zero of them.
type NodeCodec struct {
	Keys      codec.KeySerializer
	Vals      codec.ValueSerializer
	ValueMode ValueMode
	NumMetas  int
}

// NewNodeCodec builds a NodeCodec with inline values and a delta key
// serializer, the default combination for a freshly created tree.
func NewNodeCodec() *NodeCodec {
	return &NodeCodec{
		Keys:      codec.DeltaKeySerializer{},
		Vals:      codec.RawValueSerializer{},
		ValueMode: ValueModeInline,
	}
}

// FixedSize reports that encoded nodes are variable length.
func (c *NodeCodec) FixedSize() int { return -1 }

func header(isLeaf, leftSentinel, rightSentinel bool) byte {
	var bits byte
	if isLeaf {
		bits |= headerBitLeaf
	}
	if leftSentinel {
		bits |= headerBitLeftSentinel
	}
	if rightSentinel {
		bits |= headerBitRightSent
	}
	return headerBase + bits
}

func parseHeader(h byte) (isLeaf, leftSentinel, rightSentinel bool, err error) {
	if h < headerBase || h > headerBase+7 {
		return false, false, false, fmt.Errorf("%w: header byte %d out of range", ErrCorrupt, h)
	}
	bits := h - headerBase
	return bits&headerBitLeaf != 0, bits&headerBitLeftSentinel != 0, bits&headerBitRightSent != 0, nil
}

// Encode serializes content into its binary node layout.
func (c *NodeCodec) Encode(content *NodeContent) ([]byte, error) {
	n := len(content.Keys)
	if n > 255 {
		return nil, fmt.Errorf("%w: node has %d key slots, max 255", errAssertion, n)
	}
	leftSentinel := content.Keys[0] == nil
	rightSentinel := content.Keys[n-1] == nil

	var buf bytes.Buffer
	buf.WriteByte(header(content.IsLeaf, leftSentinel, rightSentinel))
	buf.WriteByte(byte(n))

	var varintBuf [binary.MaxVarintLen64]byte
	for i := 0; i < c.NumMetas; i++ {
		w := binary.PutVarint(varintBuf[:], 0)
		buf.Write(varintBuf[:w])
	}

	if content.IsLeaf {
		w := binary.PutVarint(varintBuf[:], content.Next)
		buf.Write(varintBuf[:w])
	} else {
		for _, child := range content.Children {
			w := binary.PutVarint(varintBuf[:], child)
			buf.Write(varintBuf[:w])
		}
	}

	start, end := sentinelTrimmedRange(n, leftSentinel, rightSentinel)
	if err := c.Keys.Serialize(&buf, content.Keys[start:end]); err != nil {
		return nil, fmt.Errorf("blink: encode keys: %w", err)
	}

	if content.IsLeaf {
		if err := c.encodeValues(&buf, content.Vals); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func sentinelTrimmedRange(n int, leftSentinel, rightSentinel bool) (start, end int) {
	start = 0
	if leftSentinel {
		start = 1
	}
	end = n
	if rightSentinel {
		end = n - 1
	}
	return start, end
}

func (c *NodeCodec) encodeValues(buf *bytes.Buffer, vals [][]byte) error {
	switch c.ValueMode {
	case ValueModeSet:
		writeBitset(buf, vals)
		return nil
	case ValueModeOutOfNode:
		var varintBuf [binary.MaxVarintLen64]byte
		for _, v := range vals {
			recid := int64(0)
			if v != nil {
				var ok bool
				recid, ok = decodeRecid(v)
				if !ok {
					return fmt.Errorf("%w: out-of-node value is not a recid", errAssertion)
				}
			}
			w := binary.PutVarint(varintBuf[:], recid)
			buf.Write(varintBuf[:w])
		}
		return nil
	default:
		for _, v := range vals {
			if err := c.Vals.Serialize(buf, v); err != nil {
				return fmt.Errorf("blink: encode value: %w", err)
			}
		}
		return nil
	}
}

// writeBitset packs one presence bit per slot, 1 meaning the slot holds a
// value (the set contains that key), LSB-first within each byte.
func writeBitset(buf *bytes.Buffer, vals [][]byte) {
	out := make([]byte, (len(vals)+7)/8)
	for i, v := range vals {
		if v != nil {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	buf.Write(out)
}

// Decode parses content from its binary node layout.
func (c *NodeCodec) Decode(data []byte) (*NodeContent, error) {
	r := bytes.NewReader(data)

	hb, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	isLeaf, leftSentinel, rightSentinel, err := parseHeader(hb)
	if err != nil {
		return nil, err
	}

	sizeB, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: read size: %v", ErrCorrupt, err)
	}
	n := int(sizeB)

	for i := 0; i < c.NumMetas; i++ {
		if _, err := binary.ReadVarint(r); err != nil {
			return nil, fmt.Errorf("%w: read meta %d: %v", ErrCorrupt, i, err)
		}
	}

	content := &NodeContent{IsLeaf: isLeaf}

	if isLeaf {
		next, err := binary.ReadVarint(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read next: %v", ErrCorrupt, err)
		}
		content.Next = next
	} else {
		children := make([]Recid, n)
		for i := range children {
			v, err := binary.ReadVarint(r)
			if err != nil {
				return nil, fmt.Errorf("%w: read child %d: %v", ErrCorrupt, i, err)
			}
			children[i] = v
		}
		content.Children = children
	}

	start, end := sentinelTrimmedRange(n, leftSentinel, rightSentinel)
	real, err := c.Keys.Deserialize(r, end-start)
	if err != nil {
		return nil, fmt.Errorf("%w: read keys: %v", ErrCorrupt, err)
	}
	keys := make([][]byte, n)
	copy(keys[start:end], real)
	content.Keys = keys

	if isLeaf {
		vals, err := c.decodeValues(r, n-2)
		if err != nil {
			return nil, err
		}
		content.Vals = vals
	}

	return content, nil
}

func (c *NodeCodec) decodeValues(r *bytes.Reader, count int) ([][]byte, error) {
	if count < 0 {
		count = 0
	}
	switch c.ValueMode {
	case ValueModeSet:
		return readBitset(r, count)
	case ValueModeOutOfNode:
		out := make([][]byte, count)
		for i := range out {
			recid, err := binary.ReadVarint(r)
			if err != nil {
				return nil, fmt.Errorf("%w: read value recid %d: %v", ErrCorrupt, i, err)
			}
			if recid == 0 {
				out[i] = nil
				continue
			}
			out[i] = encodeRecid(recid)
		}
		return out, nil
	default:
		out := make([][]byte, count)
		for i := range out {
			v, err := c.Vals.Deserialize(r)
			if err != nil {
				return nil, fmt.Errorf("%w: read value %d: %v", ErrCorrupt, i, err)
			}
			out[i] = v
		}
		return out, nil
	}
}

func readBitset(r io.Reader, count int) ([][]byte, error) {
	nbytes := (count + 7) / 8
	buf := make([]byte, nbytes)
	if nbytes > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: read presence bitset: %v", ErrCorrupt, err)
		}
	}
	out := make([][]byte, count)
	for i := 0; i < count; i++ {
		if buf[i/8]&(1<<uint(i%8)) != 0 {
			out[i] = []byte{}
		}
	}
	return out, nil
}

// encodeRecid/decodeRecid give a value-recid a []byte representation so it
// can travel through the same Vals [][]byte shape as an inline value; the
// Engine-facing value for a ValueModeOutOfNode slot is always exactly these
// 8 bytes.
func encodeRecid(recid Recid) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(recid))
	return buf
}

func decodeRecid(b []byte) (Recid, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b)), true
}
