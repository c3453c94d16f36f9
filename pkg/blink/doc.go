// Package blink implements a concurrent, ordered key-value index as a
// Lehman-Yao B-link tree.
//
// Readers never block: every lookup, scan, and descent works off an
// immutable NodeContent snapshot loaded with a single atomic read. Writers
// serialize per node (never more than one or two node locks held at once)
// and make new state visible by installing a fresh NodeContent, never by
// mutating one in place. The right-sibling link carried by every node lets
// a reader that lands one step behind a concurrent split correct itself by
// moving right instead of retrying the whole descent.
//
// The tree itself never touches a disk or a network: node content is
// addressed by an opaque recid and fetched through the Engine collaborator
// (pkg/engine), and keys/values are ordered and framed by the Comparator
// and serializers in pkg/codec. This mirrors the split the wider module
// takes in its own storage layer (pkg/store), where the write-ahead log is
// one concern and the index structure on top of it is another.
package blink
