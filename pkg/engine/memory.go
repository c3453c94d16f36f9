package engine

import (
	"sync"
	"sync/atomic"
)

// MemoryEngine is an in-process Engine backed by a map, for tests and for
// trees that never need to outlive the running goroutine. Grounded on
// pkg/store's HashIndex: a plain map guarded by a mutex, here keyed by recid
// instead of by string key.
type MemoryEngine struct {
	mu      sync.RWMutex
	records map[int64][]byte
	nextID  atomic.Int64
	closed  atomic.Bool
}

// NewMemoryEngine returns an empty MemoryEngine. Recid allocation starts
// above CatalogRecid so that recid is always available for caller bookkeeping.
func NewMemoryEngine() *MemoryEngine {
	e := &MemoryEngine{records: make(map[int64][]byte)}
	e.nextID.Store(CatalogRecid + 1)
	return e
}

// Get implements Engine.
func (e *MemoryEngine) Get(recid int64) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	data, ok := e.records[recid]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put implements Engine.
func (e *MemoryEngine) Put(data []byte) (int64, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	recid := e.nextID.Add(1) - 1
	stored := make([]byte, len(data))
	copy(stored, data)
	e.mu.Lock()
	e.records[recid] = stored
	e.mu.Unlock()
	return recid, nil
}

// Update implements Engine.
func (e *MemoryEngine) Update(recid int64, data []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	e.mu.Lock()
	e.records[recid] = stored
	e.mu.Unlock()
	return nil
}

// Commit implements Engine. A MemoryEngine has no write-behind buffer, so
// every Put/Update is already visible to RLock-ing readers; Commit is a
// no-op kept only to satisfy the interface.
func (e *MemoryEngine) Commit() error {
	if e.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close implements Engine.
func (e *MemoryEngine) Close() error {
	e.closed.Store(true)
	return nil
}

// IsReadOnly implements Engine.
func (e *MemoryEngine) IsReadOnly() bool { return false }
