package bnode

import (
	"encoding/binary"

	"mmapbtree/pkg/page"
)

// Inner body layout, starting at HeaderSize:
//
//	8..2048          keys[255]       (uint64 each)
//	2048..4096       children[256]   (PageID each)
//
// keys[i] is the smallest key reachable through children[i+1]: a search
// key equal to a separator routes into the child to its right.
const (
	innerKeysOffset     = HeaderSize
	innerChildrenOffset = innerKeysOffset + MaxKeys*8
)

func InitInner(data []byte) {
	resetLatch(data)
	SetKind(data, KindInner)
	SetCount(data, 0)
}

func InnerKey(data []byte, i int) uint64 {
	off := innerKeysOffset + i*8
	return binary.LittleEndian.Uint64(data[off : off+8])
}

func setInnerKey(data []byte, i int, key uint64) {
	off := innerKeysOffset + i*8
	binary.LittleEndian.PutUint64(data[off:off+8], key)
}

func InnerChild(data []byte, i int) page.ID {
	off := innerChildrenOffset + i*8
	return binary.LittleEndian.Uint64(data[off : off+8])
}

func setInnerChild(data []byte, i int, id page.ID) {
	off := innerChildrenOffset + i*8
	binary.LittleEndian.PutUint64(data[off:off+8], id)
}

// InnerChildIndex returns the index of the child to descend into to find
// key: the number of separator keys less than or equal to key.
func InnerChildIndex(data []byte, key uint64) int {
	count := Count(data)
	return upperBound(func(i int) uint64 { return InnerKey(data, i) }, count, key)
}

func InnerFull(data []byte) bool {
	return Count(data) >= MaxKeys
}

// InnerSetSeparator overwrites the parent separator key at index i, used
// after a borrow shifts the dividing line between two siblings.
func InnerSetSeparator(data []byte, i int, key uint64) {
	setInnerKey(data, i, key)
}

// InnerInit1 rebuilds data in place as an inner node holding a single
// separator: left and right are its two children. Used when the root
// splits, since PageID 1 must always remain the root. The latch word is
// deliberately left untouched: the caller still holds the page's write
// latch, and clearing the word would let another thread acquire the
// page mid-rebuild.
func InnerInit1(data []byte, left page.ID, key uint64, right page.ID) {
	SetKind(data, KindInner)
	setInnerChild(data, 0, left)
	setInnerKey(data, 0, key)
	setInnerChild(data, 1, right)
	SetCount(data, 1)
}

// InnerInsert inserts separator key at keyIdx with rightChild becoming
// children[keyIdx+1], shifting existing keys and children right. The
// caller must ensure !InnerFull(data) first.
func InnerInsert(data []byte, keyIdx int, key uint64, rightChild page.ID) {
	count := Count(data)
	for i := count; i > keyIdx; i-- {
		setInnerKey(data, i, InnerKey(data, i-1))
	}
	setInnerKey(data, keyIdx, key)

	for i := count + 1; i > keyIdx+1; i-- {
		setInnerChild(data, i, InnerChild(data, i-1))
	}
	setInnerChild(data, keyIdx+1, rightChild)

	SetCount(data, count+1)
}

// InnerSplit splits a full left inner node: the middle key is promoted
// out to the caller (neither child keeps it), left keeps the lower keys
// and children, and right (a fresh empty inner page) receives the upper
// keys and children.
func InnerSplit(left, right []byte) (promoted uint64) {
	count := Count(left)
	mid := count / 2
	promoted = InnerKey(left, mid)

	rightCount := count - mid - 1
	for i := 0; i < rightCount; i++ {
		setInnerKey(right, i, InnerKey(left, mid+1+i))
	}
	for i := 0; i <= rightCount; i++ {
		setInnerChild(right, i, InnerChild(left, mid+1+i))
	}
	SetCount(right, rightCount)
	SetCount(left, mid)
	return promoted
}

// InnerRemoveByChild removes the separator key and the child pointer at
// childIdx, used when childIdx's subtree has just been merged into its
// left sibling and no longer exists.
func InnerRemoveByChild(data []byte, childIdx int) {
	count := Count(data)
	keyIdx := childIdx - 1
	for i := keyIdx; i < count-1; i++ {
		setInnerKey(data, i, InnerKey(data, i+1))
	}
	for i := childIdx; i < count; i++ {
		setInnerChild(data, i, InnerChild(data, i+1))
	}
	SetCount(data, count-1)
}

// InnerBorrowFromRight moves right's first child under left (via the
// current parent separator parentKey) and returns the new parent
// separator: right's former first key.
func InnerBorrowFromRight(parentKey uint64, left, right []byte) (movedChild page.ID, newParentKey uint64) {
	lc := Count(left)
	setInnerKey(left, lc, parentKey)
	movedChild = InnerChild(right, 0)
	setInnerChild(left, lc+1, movedChild)
	SetCount(left, lc+1)

	newParentKey = InnerKey(right, 0)
	rc := Count(right)
	for i := 0; i < rc-1; i++ {
		setInnerKey(right, i, InnerKey(right, i+1))
	}
	for i := 0; i < rc; i++ {
		setInnerChild(right, i, InnerChild(right, i+1))
	}
	SetCount(right, rc-1)
	return movedChild, newParentKey
}

// InnerBorrowFromLeft moves left's last child under right (via the
// current parent separator parentKey) and returns the new parent
// separator: left's former last key.
func InnerBorrowFromLeft(parentKey uint64, left, right []byte) (movedChild page.ID, newParentKey uint64) {
	lc := Count(left)
	rc := Count(right)

	for i := rc; i > 0; i-- {
		setInnerKey(right, i, InnerKey(right, i-1))
	}
	for i := rc + 1; i > 0; i-- {
		setInnerChild(right, i, InnerChild(right, i-1))
	}
	setInnerKey(right, 0, parentKey)
	movedChild = InnerChild(left, lc)
	setInnerChild(right, 0, movedChild)
	SetCount(right, rc+1)

	newParentKey = InnerKey(left, lc-1)
	SetCount(left, lc-1)
	return movedChild, newParentKey
}

// InnerMerge folds parentKey and all of right's keys and children onto
// the end of left. The caller frees right's page afterward.
func InnerMerge(parentKey uint64, left, right []byte) {
	lc := Count(left)
	rc := Count(right)

	setInnerKey(left, lc, parentKey)
	for i := 0; i < rc; i++ {
		setInnerKey(left, lc+1+i, InnerKey(right, i))
	}
	for i := 0; i <= rc; i++ {
		setInnerChild(left, lc+1+i, InnerChild(right, i))
	}
	SetCount(left, lc+1+rc)
}
