// Package index provides secondary, field-value indexes over the records a
// partition stores, each backed by its own pkg/blink.Tree rather than the
// naive non-B-link B+Tree the rest of this codebase used to carry — see
// the repository's grounding ledger for why the two were unified.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ssargent/blinkdb/pkg/blink"
	"github.com/ssargent/blinkdb/pkg/engine"
)

// normalizeOrder clamps a caller-supplied B+Tree order (historically as low
// as 3, from the teacher's non-B-link tree) into the blink.Tree's valid
// range: even, MinOrder..MaxOrder.
func normalizeOrder(order int) int {
	if order < blink.MinOrder {
		order = blink.MinOrder
	}
	if order > blink.MaxOrder {
		order = blink.MaxOrder
	}
	if order%2 != 0 {
		order++
	}
	return order
}

// SecondaryIndex manages a blink.Tree-based index for a single field. Keys
// are a composite of the serialized field value followed by the primary
// key, so distinct records sharing a field value sort adjacently and a
// lookup by field value becomes a bounded prefix scan.
type SecondaryIndex struct {
	fieldName string
	order     int
	tree      *blink.Tree
	eng       engine.Engine
	mutex     sync.RWMutex
}

// NewSecondaryIndex creates a new secondary index for a field, initially
// backed by an in-memory Engine; Save/Load swap in a durable LogEngine.
func NewSecondaryIndex(fieldName string, order int) *SecondaryIndex {
	order = normalizeOrder(order)
	mem := engine.NewMemoryEngine()
	tree, err := blink.NewTree(mem, blink.Options{Order: order})
	if err != nil {
		// NewTree only fails on an out-of-range order, and normalizeOrder
		// already guarantees one in range.
		panic(fmt.Sprintf("index: unreachable NewTree failure: %v", err))
	}
	return &SecondaryIndex{
		fieldName: fieldName,
		order:     order,
		tree:      tree,
		eng:       mem,
	}
}

// Insert adds a record to the secondary index. The index key is
// field_value||primary_key, so uniqueness across distinct primary keys
// holds even when two records share a field value.
func (idx *SecondaryIndex) Insert(fieldValue interface{}, primaryKey []byte) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	indexKey := idx.createIndexKey(fieldValue, primaryKey)
	if _, _, err := idx.tree.Put(indexKey, primaryKey); err != nil {
		return fmt.Errorf("failed to insert into index %s: %w", idx.fieldName, err)
	}
	return nil
}

// Delete removes a record from the secondary index, reporting whether a
// matching entry existed.
func (idx *SecondaryIndex) Delete(fieldValue interface{}, primaryKey []byte) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	indexKey := idx.createIndexKey(fieldValue, primaryKey)
	_, err := idx.tree.Delete(indexKey)
	return err == nil
}

// Search finds every primary key recorded under an exact field value match,
// via a bounded scan over the [prefix, prefixUpperBound) half-open range.
func (idx *SecondaryIndex) Search(fieldValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	prefix := idx.createFieldPrefix(fieldValue)
	return idx.scanPrefixRange(prefix, prefix)
}

// SearchRange finds every primary key whose field value falls within
// [startValue, endValue], inclusive on both ends.
func (idx *SecondaryIndex) SearchRange(startValue, endValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	startPrefix := idx.createFieldPrefix(startValue)
	endPrefix := idx.createFieldPrefix(endValue)
	return idx.scanPrefixRange(startPrefix, endPrefix)
}

// scanPrefixRange returns the primary keys of every index entry whose key
// lies in [lowerPrefix, prefixUpperBound(upperPrefix)). prefixUpperBound
// increments upperPrefix's last byte, which bounds every key having
// upperPrefix as a prefix without needing a true comparator over the
// decoded field value.
func (idx *SecondaryIndex) scanPrefixRange(lowerPrefix, upperPrefix []byte) ([][]byte, error) {
	upper := prefixUpperBound(upperPrefix)

	var lower []byte
	lowerInclusive := true
	if len(lowerPrefix) == 0 {
		lower = []byte{}
	} else {
		lower = lowerPrefix
	}

	it, err := idx.tree.Scan(lower, lowerInclusive, upper, false)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index %s: %w", idx.fieldName, err)
	}

	var results [][]byte
	for it.Next() {
		primaryKey := make([]byte, len(it.Value()))
		copy(primaryKey, it.Value())
		results = append(results, primaryKey)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate index %s: %w", idx.fieldName, err)
	}
	return results, nil
}

// prefixUpperBound returns the smallest key that is strictly greater than
// every key having prefix as a prefix, by incrementing the last non-0xFF
// byte and truncating the rest. A prefix of all 0xFF bytes (or empty) has
// no finite upper bound and yields nil (unbounded above).
func prefixUpperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

// encodeCatalogRoot is the byte layout Save/Load use to persist the tree's
// root recid at engine.CatalogRecid, so a reopened index knows where its
// root lives in the log file.
func encodeCatalogRoot(recid blink.Recid) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(recid))
	return buf
}

func decodeCatalogRoot(data []byte) (blink.Recid, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("index: corrupt catalog root record (%d bytes)", len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

// Save persists the index to disk: every entry is copied, in ascending key
// order, into a fresh LogEngine-backed tree, whose root recid is then
// recorded at engine.CatalogRecid so Load can find it again.
func (idx *SecondaryIndex) Save(dir string) error {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	filename := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear existing index file for %s: %w", idx.fieldName, err)
	}

	diskEngine, err := engine.OpenLogEngine(filename)
	if err != nil {
		return fmt.Errorf("failed to open index file for %s: %w", idx.fieldName, err)
	}

	diskTree, err := blink.NewTree(diskEngine, blink.Options{Order: idx.order})
	if err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to create on-disk tree for %s: %w", idx.fieldName, err)
	}

	it, err := idx.tree.Scan([]byte{}, true, nil, false)
	if err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to scan index %s for save: %w", idx.fieldName, err)
	}
	for it.Next() {
		if _, _, err := diskTree.Put(it.Key(), it.Value()); err != nil {
			diskEngine.Close()
			return fmt.Errorf("failed to write entry while saving index %s: %w", idx.fieldName, err)
		}
	}
	if err := it.Err(); err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to iterate index %s for save: %w", idx.fieldName, err)
	}

	if err := diskEngine.Update(engine.CatalogRecid, encodeCatalogRoot(diskTree.RootRecid())); err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to record root for index %s: %w", idx.fieldName, err)
	}
	if err := diskEngine.Commit(); err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to commit index %s: %w", idx.fieldName, err)
	}
	return diskEngine.Close()
}

// Load restores the index from disk, replacing the in-memory tree with one
// backed directly by the reopened LogEngine.
func (idx *SecondaryIndex) Load(dir string) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	filename := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		// Index doesn't exist yet, keep the empty in-memory tree.
		return nil
	}

	diskEngine, err := engine.OpenLogEngine(filename)
	if err != nil {
		return fmt.Errorf("failed to open index file for %s: %w", idx.fieldName, err)
	}

	rootBytes, err := diskEngine.Get(engine.CatalogRecid)
	if err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to read catalog root for index %s: %w", idx.fieldName, err)
	}
	rootRecid, err := decodeCatalogRoot(rootBytes)
	if err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to decode catalog root for index %s: %w", idx.fieldName, err)
	}

	diskTree, err := blink.OpenTree(diskEngine, blink.Options{Order: idx.order}, rootRecid)
	if err != nil {
		diskEngine.Close()
		return fmt.Errorf("failed to load index for field %s: %w", idx.fieldName, err)
	}

	if idx.eng != nil {
		idx.eng.Close()
	}
	idx.tree = diskTree
	idx.eng = diskEngine
	return nil
}

// createIndexKey creates a composite key: field_value + primary_key
func (idx *SecondaryIndex) createIndexKey(fieldValue interface{}, primaryKey []byte) []byte {
	var buf bytes.Buffer
	idx.serializeValue(&buf, fieldValue)
	buf.Write(primaryKey)
	return buf.Bytes()
}

// createFieldPrefix creates a key prefix for field value matching
func (idx *SecondaryIndex) createFieldPrefix(fieldValue interface{}) []byte {
	var buf bytes.Buffer
	idx.serializeValue(&buf, fieldValue)
	return buf.Bytes()
}

// serializeValue serializes different value types for indexing. The
// leading type marker keeps encodings for different Go types from
// comparing equal or interleaving under plain byte comparison.
func (idx *SecondaryIndex) serializeValue(buf *bytes.Buffer, value interface{}) {
	switch v := value.(type) {
	case int:
		buf.WriteByte(0) // Type marker for int
		binary.Write(buf, binary.BigEndian, int64(v))
	case int64:
		buf.WriteByte(0)
		binary.Write(buf, binary.BigEndian, v)
	case float64:
		buf.WriteByte(1) // Type marker for float64
		binary.Write(buf, binary.BigEndian, v)
	case string:
		buf.WriteByte(2) // Type marker for string
		buf.WriteString(v)
		buf.WriteByte(0) // Null terminator
	default:
		// For unknown types, convert to string
		buf.WriteByte(2)
		buf.WriteString(fmt.Sprintf("%v", v))
		buf.WriteByte(0)
	}
}

// IndexManager manages multiple secondary indexes for a partition
type IndexManager struct {
	indexes map[string]*SecondaryIndex
	mutex   sync.RWMutex
	order   int
}

// NewIndexManager creates a new index manager
func NewIndexManager(order int) *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*SecondaryIndex),
		order:   normalizeOrder(order),
	}
}

// GetOrCreateIndex gets an existing index or creates a new one for a field
func (im *IndexManager) GetOrCreateIndex(fieldName string) *SecondaryIndex {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	if idx, exists := im.indexes[fieldName]; exists {
		return idx
	}

	idx := NewSecondaryIndex(fieldName, im.order)
	im.indexes[fieldName] = idx
	return idx
}

// SaveAll saves all indexes to disk
func (im *IndexManager) SaveAll(dir string) error {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for _, idx := range im.indexes {
		if err := idx.Save(dir); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads all indexes from disk
func (im *IndexManager) LoadAll(dir string) error {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	// Find all index files
	pattern := filepath.Join(dir, "index_*.dat")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, file := range files {
		filename := filepath.Base(file)
		if len(filename) < 10 { // "index_.dat" is 10 chars minimum
			continue
		}

		// Extract field name from filename
		fieldName := filename[6 : len(filename)-4] // Remove "index_" prefix and ".dat" suffix

		idx := NewSecondaryIndex(fieldName, im.order)
		if err := idx.Load(dir); err != nil {
			return err
		}

		im.indexes[fieldName] = idx
	}

	return nil
}
