package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// PebbleEngine is an Engine backed by a cockroachdb/pebble LSM store. Several
// trees can share one pebble.DB: each PebbleEngine mints its own 20-byte
// ksuid namespace prefix at creation and every key it writes is
// prefix||big-endian(recid), so one physical database can host the nodes of
// many independent trees (and whatever else the host process keeps in the
// same pebble.DB) without key collisions.
//
// Adapted from pkg/storage's DefaultStorage, which addressed pebble records
// by a standalone ksuid per record; here the ksuid instead names the whole
// engine, and records within it are addressed by the int64 recid pkg/blink
// requires, keeping the prefix constant and the suffix ordered.
type PebbleEngine struct {
	db     *pebble.DB
	prefix []byte
	nextID atomic.Int64
	owned  bool // true if this engine opened db itself and must close it
}

// OpenPebbleEngine opens a pebble database at path and returns a
// PebbleEngine namespaced with a fresh ksuid prefix.
func OpenPebbleEngine(path string) (*PebbleEngine, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("engine: open pebble at %s: %w", path, err)
	}
	e, err := newPebbleEngine(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	e.owned = true
	return e, nil
}

// NewPebbleEngineNamespace creates a PebbleEngine over an already-open
// pebble.DB, for callers hosting several trees (or other pebble consumers)
// in one database. The caller remains responsible for closing db.
func NewPebbleEngineNamespace(db *pebble.DB) (*PebbleEngine, error) {
	return newPebbleEngine(db)
}

func newPebbleEngine(db *pebble.DB) (*PebbleEngine, error) {
	id := ksuid.New()
	e := &PebbleEngine{db: db, prefix: id.Bytes()}
	e.nextID.Store(CatalogRecid + 1)

	max, err := e.scanMaxRecid()
	if err != nil {
		return nil, err
	}
	if max >= e.nextID.Load() {
		e.nextID.Store(max + 1)
	}
	return e, nil
}

// scanMaxRecid walks this engine's key range to recover the highest recid
// already stored, so recid allocation resumes correctly after a reopen.
// A freshly minted prefix is vanishingly unlikely to collide with a prior
// one, so in practice this always returns CatalogRecid on a new namespace.
func (e *PebbleEngine) scanMaxRecid() (int64, error) {
	upper := append(append([]byte(nil), e.prefix...), 0xFF)
	iter, err := e.db.NewIter(&pebble.IterOptions{
		LowerBound: e.prefix,
		UpperBound: upper,
	})
	if err != nil {
		return CatalogRecid, fmt.Errorf("engine: scan pebble namespace: %w", err)
	}
	defer iter.Close()

	max := int64(CatalogRecid)
	for iter.Last(); iter.Valid(); iter.Prev() {
		recid, ok := e.recidFromKey(iter.Key())
		if !ok {
			continue
		}
		if recid > max {
			max = recid
		}
		break
	}
	return max, iter.Error()
}

func (e *PebbleEngine) key(recid int64) []byte {
	buf := make([]byte, len(e.prefix)+8)
	copy(buf, e.prefix)
	binary.BigEndian.PutUint64(buf[len(e.prefix):], uint64(recid))
	return buf
}

func (e *PebbleEngine) recidFromKey(k []byte) (int64, bool) {
	if len(k) != len(e.prefix)+8 || !bytes.Equal(k[:len(e.prefix)], e.prefix) {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(k[len(e.prefix):])), true
}

// Get implements Engine.
func (e *PebbleEngine) Get(recid int64) ([]byte, error) {
	data, closer, err := e.db.Get(e.key(recid))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("engine: pebble get: %w", err)
	}
	out := make([]byte, len(data))
	copy(out, data)
	if cerr := closer.Close(); cerr != nil {
		return nil, fmt.Errorf("engine: close pebble read handle: %w", cerr)
	}
	return out, nil
}

// Put implements Engine.
func (e *PebbleEngine) Put(data []byte) (int64, error) {
	recid := e.nextID.Add(1) - 1
	if err := e.db.Set(e.key(recid), data, pebble.NoSync); err != nil {
		return 0, fmt.Errorf("engine: pebble put: %w", err)
	}
	return recid, nil
}

// Update implements Engine.
func (e *PebbleEngine) Update(recid int64, data []byte) error {
	if err := e.db.Set(e.key(recid), data, pebble.NoSync); err != nil {
		return fmt.Errorf("engine: pebble update: %w", err)
	}
	return nil
}

// Commit implements Engine: pebble.NoSync writes above are durable once the
// WAL is flushed, which LogData forces explicitly rather than waiting for
// pebble's own background sync.
func (e *PebbleEngine) Commit() error {
	if err := e.db.LogData(e.prefix, pebble.Sync); err != nil {
		return fmt.Errorf("engine: pebble commit: %w", err)
	}
	return nil
}

// Close implements Engine. If this engine opened its own pebble.DB, Close
// shuts it down; if it was handed an already-open db via
// NewPebbleEngineNamespace, the caller owns that lifecycle instead. Calls
// after Close are not checked here: on an owned db they fail with pebble's
// own error, and on a shared db they keep working.
func (e *PebbleEngine) Close() error {
	if !e.owned {
		return nil
	}
	return e.db.Close()
}

// IsReadOnly implements Engine.
func (e *PebbleEngine) IsReadOnly() bool { return false }
