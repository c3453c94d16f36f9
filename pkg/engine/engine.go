// Package engine provides the record-engine collaborator pkg/blink depends
// on: an opaque mapping from an integer recid to the bytes a NodeCodec
// produces, with get/put/update/commit semantics. The tree itself never
// decides how or where bytes live; that decision is entirely this package's.
package engine

import "errors"

// CatalogRecid is the reserved recid an Engine implementation sets aside for
// whatever bookkeeping record a caller wants to keep alongside tree nodes
// (e.g. the current RootRef, when an Engine is asked to persist one). No
// node is ever stored at this recid.
const CatalogRecid int64 = 0

var (
	// ErrNotFound is returned by Get when recid has no stored bytes.
	ErrNotFound = errors.New("engine: recid not found")
	// ErrReadOnly is returned by Put/Update/Commit against a read-only Engine.
	ErrReadOnly = errors.New("engine: engine is read-only")
	// ErrClosed is returned by MemoryEngine and LogEngine calls after Close.
	ErrClosed = errors.New("engine: engine is closed")
)

// Engine is the storage collaborator pkg/blink addresses nodes through.
// Implementations must make Get observe the effects of any Put/Update that
// happened-before in program order on the same goroutine; cross-goroutine
// visibility of an uncommitted Update is implementation-defined, but after
// Commit returns, every prior Update must be visible to every goroutine.
type Engine interface {
	// Get returns the bytes stored at recid, or ErrNotFound.
	Get(recid int64) ([]byte, error)
	// Put stores data as a new record and returns its freshly allocated recid.
	Put(data []byte) (int64, error)
	// Update overwrites the record at recid, which must already exist.
	Update(recid int64, data []byte) error
	// Commit makes all prior Put/Update calls durable and cross-goroutine
	// visible. Engines with no write-behind buffering may treat this as a
	// no-op beyond whatever consistency they already provide.
	Commit() error
	// Close releases any resources the Engine holds. MemoryEngine and
	// LogEngine return ErrClosed from Get/Put/Update/Commit after Close;
	// PebbleEngine keeps no closed flag (see PebbleEngine.Close).
	Close() error
	// IsReadOnly reports whether Put/Update/Commit will always fail.
	IsReadOnly() bool
}
