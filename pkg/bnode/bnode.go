// Package bnode defines the on-disk layout of B+tree node pages and the
// pure, allocation-free accessors over them. A node page is exactly
// page.Size bytes: an 8-byte shared header (latch word, kind tag, key
// count) followed by a kind-specific body. Every accessor operates
// directly on the mmap'd byte slice handed back by heap.Page, so writes
// are visible immediately to every other mapping of the same page.
package bnode

import (
	"encoding/binary"
)

// Shared header layout, 8 bytes:
//
//	0..4  latch word (read by pkg/lock as an RWMutex word)
//	4..5  kind tag
//	5..7  key count (uint16)
//	7..8  reserved, always zero
const (
	HeaderSize = 8

	latchOffset = 0
	kindOffset  = 4
	countOffset = 5
)

// Kind tags. Leaf is 1 and Inner is 0, matching the convention that a
// zeroed page (as produced by a fresh heap allocation) reads as an inner
// node with zero keys; every inner node is explicitly tagged on creation
// regardless, so this is a documentation note rather than a relied-upon
// default.
const (
	KindInner byte = 0
	KindLeaf  byte = 1
)

// MaxKeys is the maximum number of keys a node of either kind holds.
// MinKeys is the minimum a non-root node must hold after any operation
// completes; a node may transiently fall below it mid-rebalance.
const (
	MaxKeys = 255
	MinKeys = 127
)

// LatchWord returns a pointer to the node's embedded reader-writer latch
// word, for use with pkg/lock.RWMutex.
func LatchWord(data []byte) *int32 {
	return wordAt(data, latchOffset)
}

// resetLatch clears a page's embedded latch word. InitLeaf and InitInner
// clear it: latch state never outlives the operation that holds it, and a
// page recycled from the free list may carry a stale word. InnerInit1,
// which rebuilds the held root page in place, does not.
func resetLatch(data []byte) {
	*LatchWord(data) = 0
}

// ClearLatch is resetLatch exposed for callers outside this package: the
// B+tree's root split relocates an existing node's full byte image
// (latch word included) into a freshly allocated page and must scrub the
// copied latch state before anyone else can reach that page.
func ClearLatch(data []byte) {
	resetLatch(data)
}

func Kind(data []byte) byte {
	return data[kindOffset]
}

func SetKind(data []byte, k byte) {
	data[kindOffset] = k
}

func IsLeaf(data []byte) bool { return Kind(data) == KindLeaf }

func Count(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[countOffset : countOffset+2]))
}

func SetCount(data []byte, n int) {
	binary.LittleEndian.PutUint16(data[countOffset:countOffset+2], uint16(n))
}

// lowerBound returns the number of the first `count` keys strictly less
// than key: the position at which key belongs to keep the array sorted,
// and the candidate index for an exact-match check.
func lowerBound(keyAt func(int) uint64, count int, key uint64) int {
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if keyAt(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// upperBound returns the number of the first `count` keys less than or
// equal to key. Used for inner-node child routing: a search key equal to
// a separator routes into the separator's right child.
func upperBound(keyAt func(int) uint64, count int, key uint64) int {
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if keyAt(mid) <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
