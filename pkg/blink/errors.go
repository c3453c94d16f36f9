package blink

import "errors"

var (
	// ErrKeyNotFound is returned by Get/Delete when the key is absent.
	ErrKeyNotFound = errors.New("blink: key not found")

	// ErrInvalidArgument is returned for nil keys, malformed bounds, and
	// other caller errors that are never a property of tree state.
	ErrInvalidArgument = errors.New("blink: invalid argument")

	// ErrClosed is not returned by any Tree method. After Close, operations
	// that reach the Engine fail with the Engine's own (wrapped) error, and
	// reads served entirely from the node cache still succeed.
	ErrClosed = errors.New("blink: tree is closed")

	// ErrCorrupt is returned when a node fails to decode or a decoded node
	// violates a structural invariant the codec can check locally.
	ErrCorrupt = errors.New("blink: corrupt node")

	// errAssertion marks an internal invariant violation: a bug in this
	// package, never an expected runtime condition.
	errAssertion = errors.New("blink: internal invariant violation")
)
