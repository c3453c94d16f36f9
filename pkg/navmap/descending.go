package navmap

// DescendingMap presents a View's entries in reverse key order. Per the
// spec's design notes it is "expressed as a view that composes over forward
// operations; no separate data structure" and deliberately not optimized:
// Entries materializes the whole bounded range with a forward Scan and
// reverses it in place, rather than maintaining its own reverse-ordered
// node layout. Expect it to be slower than ascending iteration; that is by
// design, not an oversight.
type DescendingMap struct {
	base           View
	lower          []byte
	lowerInclusive bool
	upper          []byte
	upperInclusive bool
}

// NewDescendingMap returns a view of base's [lower, upper] range (same
// inclusivity semantics as Tree.Scan) that iterates highest-key-first.
func NewDescendingMap(base View, lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) *DescendingMap {
	return &DescendingMap{base: base, lower: lower, lowerInclusive: lowerInclusive, upper: upper, upperInclusive: upperInclusive}
}

// Entries materializes every entry in range, then reverses it, so the
// result is ordered from the highest key down to the lowest.
func (d *DescendingMap) Entries() ([]Entry, error) {
	it, err := d.base.Scan(d.lower, d.lowerInclusive, d.upper, d.upperInclusive)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for it.Next() {
		out = append(out, Entry{Key: cloneBytes(it.Key()), Value: cloneBytes(it.Value())})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// FirstKey returns the highest key in range, i.e. the first key a
// descending iteration would emit. It is implemented atop Entries, matching
// the "no separate optimized path" design note — a real implementation
// wanting O(log n) firstKey would need a genuine reverse descent, which
// this adapter intentionally does not provide.
func (d *DescendingMap) FirstKey() ([]byte, bool, error) {
	entries, err := d.Entries()
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[0].Key, true, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
