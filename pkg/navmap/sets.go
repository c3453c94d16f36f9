package navmap

// KeySet, EntrySet and ValueCollection are read-only snapshots of a View's
// contents, the three collection-view adapters the spec groups alongside
// sub-maps as "out of scope... thin adapters over the core tree
// operations." Each is produced by a single Scan; none retains a live
// connection back to the tree, so mutations after a collection is built are
// not reflected in it (callers wanting a live view should call again).

// KeySet returns every key in [lower, upper], ascending, honoring
// inclusivity the same way Tree.Scan does.
func KeySet(v View, lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) ([][]byte, error) {
	it, err := v.Scan(lower, lowerInclusive, upper, upperInclusive)
	if err != nil {
		return nil, err
	}
	var keys [][]byte
	for it.Next() {
		keys = append(keys, cloneBytes(it.Key()))
	}
	return keys, it.Err()
}

// ValueCollection returns every value in [lower, upper], ascending by key.
// Unlike KeySet, duplicate values are not deduplicated — this mirrors the
// spec's map semantics where the value collection's size equals the map's
// size, not the number of distinct values.
func ValueCollection(v View, lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) ([][]byte, error) {
	it, err := v.Scan(lower, lowerInclusive, upper, upperInclusive)
	if err != nil {
		return nil, err
	}
	var vals [][]byte
	for it.Next() {
		vals = append(vals, cloneBytes(it.Value()))
	}
	return vals, it.Err()
}

// EntrySet returns every (key, value) pair in [lower, upper], ascending by
// key.
func EntrySet(v View, lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) ([]Entry, error) {
	it, err := v.Scan(lower, lowerInclusive, upper, upperInclusive)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for it.Next() {
		entries = append(entries, Entry{Key: cloneBytes(it.Key()), Value: cloneBytes(it.Value())})
	}
	return entries, it.Err()
}
